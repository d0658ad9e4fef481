package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go-recruitment-intake/internal/domain"
	"go-recruitment-intake/pkg/metrics"

	"github.com/go-resty/resty/v2"
)

const (
	resumesPath   = "/resumes"
	jobTitlesPath = "/job-titles"
)

type resumeAPI struct {
	baseURL string
	token   string
	// reads may retry; uploads never do
	reader   *resty.Client
	uploader *resty.Client
}

// NewResumeRepository talks to the recruitment REST API. reader and uploader
// usually share one circuit breaker; uploader must be configured without
// retries.
func NewResumeRepository(baseURL, token string, reader, uploader *resty.Client) domain.ResumeRepository {
	return &resumeAPI{
		baseURL:  strings.TrimRight(baseURL, "/"),
		token:    token,
		reader:   reader,
		uploader: uploader,
	}
}

type errorBody struct {
	Message string `json:"message"`
}

type submitBody struct {
	Data map[string]interface{} `json:"data"`
}

func (r *resumeAPI) SubmitResume(ctx context.Context, upload domain.ResumeUpload) (*domain.SubmissionReceipt, error) {
	form := map[string]string{
		"name":  upload.Name,
		"email": upload.Email,
		"role":  upload.JobTitle,
	}
	if upload.Contact != nil {
		contact, err := json.Marshal(upload.Contact)
		if err != nil {
			return nil, &domain.SubmissionError{Message: domain.GenericSubmissionMessage, Err: err}
		}
		form["contact"] = string(contact)
	}

	var ok submitBody
	var failed errorBody
	resp, err := r.request(ctx, r.uploader).
		SetMultipartField("resume", upload.FileName, upload.MIMEType, upload.Content).
		SetFormData(form).
		SetResult(&ok).
		SetError(&failed).
		Post(r.baseURL + resumesPath)
	metrics.RecordUpstream("submit_resume", upstreamErr(resp, err))

	if err != nil {
		return nil, &domain.SubmissionError{Message: domain.GenericSubmissionMessage, Err: err}
	}
	if resp.IsError() {
		msg := strings.TrimSpace(failed.Message)
		if msg == "" {
			msg = domain.GenericSubmissionMessage
		}
		return nil, &domain.SubmissionError{
			StatusCode: resp.StatusCode(),
			Message:    msg,
			Err:        fmt.Errorf("submit resume: status %d", resp.StatusCode()),
		}
	}

	return receiptFrom(ok.Data), nil
}

// receiptFrom reads the record reference out of the loosely typed data
// object; the API has returned both "_id" and "id" over time.
func receiptFrom(data map[string]interface{}) *domain.SubmissionReceipt {
	receipt := &domain.SubmissionReceipt{}
	for _, key := range []string{"_id", "id"} {
		if id := stringField(data, key); id != "" {
			receipt.ResumeID = id
			break
		}
	}
	receipt.ResumeLink = stringField(data, "resume-link")
	return receipt
}

func stringField(data map[string]interface{}, key string) string {
	switch v := data[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}

type listResumesBody struct {
	Data domain.ResumePage `json:"data"`
}

func (r *resumeAPI) ListResumes(ctx context.Context, page, limit int) (*domain.ResumePage, error) {
	if page < 1 {
		page = 1
	}

	var body listResumesBody
	var failed errorBody
	resp, err := r.request(ctx, r.reader).
		SetQueryParam("page", strconv.Itoa(page)).
		SetQueryParam("limit", strconv.Itoa(limit)).
		SetResult(&body).
		SetError(&failed).
		Get(r.baseURL + resumesPath)
	metrics.RecordUpstream("list_resumes", upstreamErr(resp, err))

	if err != nil {
		return nil, fmt.Errorf("list resumes: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("list resumes: status %d: %s", resp.StatusCode(), failed.Message)
	}

	result := body.Data
	if result.Resumes == nil {
		result.Resumes = []domain.Resume{}
	}
	return &result, nil
}

type listJobTitlesBody struct {
	Data []domain.JobTitle `json:"data"`
}

func (r *resumeAPI) ListJobTitles(ctx context.Context) ([]domain.JobTitle, error) {
	var body listJobTitlesBody
	var failed errorBody
	resp, err := r.request(ctx, r.reader).
		SetResult(&body).
		SetError(&failed).
		Get(r.baseURL + jobTitlesPath)
	metrics.RecordUpstream("list_job_titles", upstreamErr(resp, err))

	if err != nil {
		return nil, fmt.Errorf("list job titles: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("list job titles: status %d: %s", resp.StatusCode(), failed.Message)
	}
	return body.Data, nil
}

func (r *resumeAPI) request(ctx context.Context, client *resty.Client) *resty.Request {
	req := client.R().SetContext(ctx).SetHeader("Accept", "application/json")
	if r.token != "" {
		req.SetAuthToken(r.token)
	}
	return req
}

var errUpstreamStatus = errors.New("upstream error status")

func upstreamErr(resp *resty.Response, err error) error {
	if err != nil {
		return err
	}
	if resp != nil && resp.IsError() {
		return errUpstreamStatus
	}
	return nil
}
