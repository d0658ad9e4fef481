package domain

import (
	"context"
	"io"
	"time"
)

// GenericSubmissionMessage is shown when the upload fails without a usable
// server message.
const GenericSubmissionMessage = "Something went wrong while uploading your resume. Please try again."

type Contact struct {
	Number      string `json:"number"`
	CountryCode string `json:"country_code"`
}

// ResumeUpload is the multipart payload of a resume submission.
type ResumeUpload struct {
	FileName string
	MIMEType string
	Content  io.Reader
	Name     string
	Email    string
	JobTitle string
	Contact  *Contact
}

type SubmissionReceipt struct {
	ResumeID   string `json:"resume_id,omitempty"`
	ResumeLink string `json:"resume_link,omitempty"`
}

// SubmissionError is a failed upload. Message is safe to show the applicant.
type SubmissionError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *SubmissionError) Error() string {
	return e.Message
}

func (e *SubmissionError) Unwrap() error {
	return e.Err
}

type Resume struct {
	ID         string    `json:"_id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Role       string    `json:"role"`
	ResumeLink string    `json:"resume-link,omitempty"`
	Contact    *Contact  `json:"contact,omitempty"`
	CreatedAt  time.Time `json:"createdAt,omitempty"`
}

type ResumePage struct {
	Resumes      []Resume  `json:"resumes"`
	CurrentPage  int       `json:"currentPage"`
	TotalPages   int       `json:"totalPages"`
	TotalResumes int       `json:"totalResumes"`
	Limit        int       `json:"limit"`
	FetchedAt    time.Time `json:"fetchedAt"`
}

type JobTitle struct {
	ID        string `json:"_id"`
	Name      string `json:"name"`
	IsDeleted bool   `json:"isDeleted"`
}

// ResumeRepository is the recruitment REST API as seen by this service.
type ResumeRepository interface {
	SubmitResume(ctx context.Context, upload ResumeUpload) (*SubmissionReceipt, error)
	ListResumes(ctx context.Context, page, limit int) (*ResumePage, error)
	ListJobTitles(ctx context.Context) ([]JobTitle, error)
}
