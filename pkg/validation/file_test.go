package validation_test

import (
	"strings"
	"testing"

	"go-recruitment-intake/pkg/validation"

	"github.com/stretchr/testify/assert"
)

var pdfHead = []byte("%PDF-1.7\n")

func TestValidateResumeFile(t *testing.T) {
	t.Run("Should accept a 500KB pdf", func(t *testing.T) {
		res := validation.ValidateResumeFile(validation.FileMeta{
			Name:      "cv.pdf",
			MIMEType:  "application/pdf",
			SizeBytes: 500 << 10,
			Head:      pdfHead,
		})
		assert.True(t, res.Valid, res.Message)
	})

	t.Run("Should reject a 6MB file with a size message", func(t *testing.T) {
		res := validation.ValidateResumeFile(validation.FileMeta{
			Name:      "cv.pdf",
			MIMEType:  "application/pdf",
			SizeBytes: 6 << 20,
		})
		assert.False(t, res.Valid)
		assert.Contains(t, res.Message, "5MB")
	})

	t.Run("Should treat the size bounds as (1KB, 5MB]", func(t *testing.T) {
		meta := validation.FileMeta{Name: "cv.docx"}

		meta.SizeBytes = 1024
		assert.False(t, validation.ValidateResumeFile(meta).Valid)

		meta.SizeBytes = 1025
		assert.True(t, validation.ValidateResumeFile(meta).Valid)

		meta.SizeBytes = 5 << 20
		assert.True(t, validation.ValidateResumeFile(meta).Valid)
	})

	t.Run("Should accept by MIME type when the extension is unknown", func(t *testing.T) {
		res := validation.ValidateResumeFile(validation.FileMeta{
			Name:      "resume",
			MIMEType:  "application/msword",
			SizeBytes: 4096,
		})
		assert.True(t, res.Valid)
	})

	t.Run("Should reject other document types", func(t *testing.T) {
		res := validation.ValidateResumeFile(validation.FileMeta{
			Name:      "photo.png",
			MIMEType:  "image/png",
			SizeBytes: 4096,
		})
		assert.False(t, res.Valid)
		assert.Contains(t, res.Message, "PDF, DOC or DOCX")
	})

	t.Run("Should reject forbidden characters and long names", func(t *testing.T) {
		for _, name := range []string{"cv<1>.pdf", "a:b.pdf", `dir\cv.pdf`, "what?.pdf", "star*.pdf", "pipe|.pdf"} {
			res := validation.ValidateResumeFile(validation.FileMeta{Name: name, SizeBytes: 4096})
			assert.False(t, res.Valid, name)
		}

		long := strings.Repeat("a", 252) + ".pdf"
		res := validation.ValidateResumeFile(validation.FileMeta{Name: long, SizeBytes: 4096})
		assert.False(t, res.Valid)
		assert.Contains(t, res.Message, "255")
	})

	t.Run("Should detect spoofed content", func(t *testing.T) {
		res := validation.ValidateResumeFile(validation.FileMeta{
			Name:      "cv.pdf",
			SizeBytes: 4096,
			Head:      []byte{0x50, 0x4B, 0x03, 0x04},
		})
		assert.False(t, res.Valid)
		assert.Contains(t, res.Message, "PDF")
	})
}
