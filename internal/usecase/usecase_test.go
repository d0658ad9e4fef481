package usecase_test

import (
	"bytes"
	"context"
	"io"
	"sync"
	"time"

	"go-recruitment-intake/internal/domain"
	"go-recruitment-intake/pkg/security"
	"go-recruitment-intake/pkg/security/antivirus"

	"github.com/stretchr/testify/mock"
)

// Mock Repositories
type MockResumeRepo struct {
	mock.Mock
}

func (m *MockResumeRepo) SubmitResume(ctx context.Context, upload domain.ResumeUpload) (*domain.SubmissionReceipt, error) {
	args := m.Called(ctx, upload)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SubmissionReceipt), args.Error(1)
}

func (m *MockResumeRepo) ListResumes(ctx context.Context, page, limit int) (*domain.ResumePage, error) {
	args := m.Called(ctx, page, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ResumePage), args.Error(1)
}

func (m *MockResumeRepo) ListJobTitles(ctx context.Context) ([]domain.JobTitle, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.JobTitle), args.Error(1)
}

type MockLimiter struct {
	mock.Mock
}

func (m *MockLimiter) AllowUpload(ctx context.Context, ip, email string) (security.Decision, error) {
	args := m.Called(ctx, ip, email)
	return args.Get(0).(security.Decision), args.Error(1)
}

type MockScanner struct {
	mock.Mock
}

func (m *MockScanner) Scan(ctx context.Context, filename string, data []byte) antivirus.ScanResult {
	return m.Called(ctx, filename, data).Get(0).(antivirus.ScanResult)
}

func (m *MockScanner) Name() string { return "mock" }

func (m *MockScanner) Available(ctx context.Context) bool { return true }

// manualClock collects scheduled callbacks so tests decide when they fire.
type manualClock struct {
	mu      sync.Mutex
	pending []func()
}

func (c *manualClock) Schedule(d time.Duration, f func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending = append(c.pending, f)
}

func (c *manualClock) Fire() int {
	c.mu.Lock()
	pending := c.pending
	c.pending = nil
	c.mu.Unlock()

	for _, f := range pending {
		f()
	}
	return len(pending)
}

// pdfResume builds an uploaded PDF of size bytes.
func pdfResume(name string, size int) domain.ResumeFile {
	data := append([]byte("%PDF-1.7\n"), bytes.Repeat([]byte("a"), size-9)...)
	return domain.ResumeFile{
		Name:      name,
		MIMEType:  "application/pdf",
		SizeBytes: int64(size),
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}
