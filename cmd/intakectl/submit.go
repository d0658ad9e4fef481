package main

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go-recruitment-intake/internal/domain"
	"go-recruitment-intake/internal/repository/api"
	"go-recruitment-intake/pkg/httpclient"
	"go-recruitment-intake/pkg/logger"
	"go-recruitment-intake/pkg/validation"

	"github.com/spf13/cobra"
)

// headBytes is enough for every magic byte signature we check
const headBytes = 512

var submitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Submit a resume file to the recruitment API",
	Long:  "Validate the applicant details and the resume file the same way the chat assistant does, then upload them once. Failed uploads are not retried.",
	RunE:  runSubmit,
}

var (
	submitFile        string
	submitName        string
	submitEmail       string
	submitJobTitle    string
	submitPhone       string
	submitCountryCode string
	submitAPIURL      string
	submitAPIToken    string
	submitTimeout     time.Duration
)

func init() {
	submitCmd.Flags().StringVarP(&submitFile, "file", "f", "", "Path to the resume (PDF, DOC or DOCX)")
	submitCmd.Flags().StringVar(&submitName, "name", "", "Applicant full name")
	submitCmd.Flags().StringVar(&submitEmail, "email", "", "Applicant email")
	submitCmd.Flags().StringVar(&submitJobTitle, "job-title", "", "Job title the applicant applies for")
	submitCmd.Flags().StringVar(&submitPhone, "phone", "", "Contact number (optional)")
	submitCmd.Flags().StringVar(&submitCountryCode, "country-code", "", "Country code of the contact number, e.g. +62")
	submitCmd.Flags().StringVar(&submitAPIURL, "api-url", "", "Recruitment API base URL (overrides RECRUITMENT_API_URL)")
	submitCmd.Flags().StringVar(&submitAPIToken, "api-token", "", "Recruitment API token (overrides RECRUITMENT_API_TOKEN)")
	submitCmd.Flags().DurationVar(&submitTimeout, "timeout", 0, "HTTP timeout (overrides HTTP_CLIENT_TIMEOUT)")

	_ = submitCmd.MarkFlagRequired("file")
	_ = submitCmd.MarkFlagRequired("name")
	_ = submitCmd.MarkFlagRequired("email")
	_ = submitCmd.MarkFlagRequired("job-title")

	rootCmd.AddCommand(submitCmd)
}

func runSubmit(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	// 1. Applicant details
	if r := validation.ValidateName(submitName); !r.Valid {
		return fmt.Errorf("name: %s", r.Message)
	}
	if r := validation.ValidateEmail(submitEmail); !r.Valid {
		return fmt.Errorf("email: %s", r.Message)
	}
	var contact *domain.Contact
	if submitPhone != "" || submitCountryCode != "" {
		if r := validation.ValidatePhone(submitPhone, submitCountryCode); !r.Valid {
			return fmt.Errorf("phone: %s", r.Message)
		}
		contact = &domain.Contact{
			Number:      strings.TrimSpace(submitPhone),
			CountryCode: strings.TrimSpace(submitCountryCode),
		}
	}

	// 2. Resume file
	file, err := os.Open(submitFile)
	if err != nil {
		return fmt.Errorf("failed to open resume: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return fmt.Errorf("failed to read resume: %w", err)
	}
	head := make([]byte, headBytes)
	n, err := io.ReadFull(file, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to read resume: %w", err)
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("failed to read resume: %w", err)
	}

	name := filepath.Base(submitFile)
	mimeType := mime.TypeByExtension(strings.ToLower(filepath.Ext(name)))
	if r := validation.ValidateResumeFile(validation.FileMeta{
		Name:      name,
		MIMEType:  mimeType,
		SizeBytes: info.Size(),
		Head:      head[:n],
	}); !r.Valid {
		return fmt.Errorf("resume: %s", r.Message)
	}

	// 3. Recruitment API client
	timeout := submitTimeout
	if timeout <= 0 {
		timeout = cfg.HTTPClientTimeout
	}
	breaker := httpclient.NewCircuitBreaker("intakectl", httpclient.BreakerSettings{
		MinimumRequests:          cfg.CBMinimumRequests,
		FailureRateThreshold:     cfg.CBFailureRateThreshold,
		PermittedCallsInHalfOpen: cfg.CBPermittedCallsInHalfOpen,
		OpenStateTimeout:         cfg.CBOpenStateTimeout,
		Interval:                 cfg.CBSlidingWindow,
	}, logger.Log)
	reader := httpclient.New(httpclient.Options{
		Timeout:    timeout,
		RetryCount: cfg.HTTPRetryCount,
		RetryWait:  cfg.HTTPRetryWait,
	}, breaker, logger.Log)
	uploader := httpclient.New(httpclient.Options{Timeout: timeout}, breaker, logger.Log)
	repo := api.NewResumeRepository(
		firstNonEmpty(submitAPIURL, cfg.RecruitmentAPIURL),
		firstNonEmpty(submitAPIToken, cfg.RecruitmentAPIToken),
		reader, uploader,
	)

	// 4. Job title against the live list; any title is accepted when it cannot be loaded
	jobTitle, err := resolveJobTitle(cmd, repo)
	if err != nil {
		return err
	}

	// 5. Upload
	receipt, err := repo.SubmitResume(ctx, domain.ResumeUpload{
		FileName: name,
		MIMEType: mimeType,
		Content:  file,
		Name:     strings.TrimSpace(submitName),
		Email:    strings.TrimSpace(submitEmail),
		JobTitle: jobTitle,
		Contact:  contact,
	})
	if err != nil {
		var subErr *domain.SubmissionError
		if errors.As(err, &subErr) {
			logger.Log.Debug("Resume submission failed", "status", subErr.StatusCode, "error", subErr.Err)
			return errors.New(subErr.Message)
		}
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Resume submitted")
	if receipt.ResumeID != "" {
		fmt.Fprintf(out, "ID:   %s\n", receipt.ResumeID)
	}
	if receipt.ResumeLink != "" {
		fmt.Fprintf(out, "Link: %s\n", receipt.ResumeLink)
	}
	return nil
}

func resolveJobTitle(cmd *cobra.Command, repo domain.ResumeRepository) (string, error) {
	title := strings.TrimSpace(submitJobTitle)

	var allowed []string
	titles, err := repo.ListJobTitles(cmd.Context())
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: job titles unavailable, submitting %q as given\n", title)
	}
	for _, t := range titles {
		if !t.IsDeleted && strings.TrimSpace(t.Name) != "" {
			allowed = append(allowed, strings.TrimSpace(t.Name))
		}
	}

	if r := validation.ValidateJobTitle(title, allowed, len(allowed) == 0); !r.Valid {
		if len(allowed) > 0 {
			return "", fmt.Errorf("job title: %s (%s)", r.Message, strings.Join(allowed, ", "))
		}
		return "", fmt.Errorf("job title: %s", r.Message)
	}

	for _, option := range allowed {
		if strings.EqualFold(option, title) {
			return option, nil
		}
	}
	return title, nil
}
