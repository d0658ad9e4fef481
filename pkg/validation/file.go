package validation

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

const (
	MinResumeBytes    int64 = 1 << 10 // exclusive
	MaxResumeBytes    int64 = 5 << 20 // inclusive
	MaxFileNameLength       = 255
)

// forbiddenFileNameChars are rejected anywhere in an uploaded file name
const forbiddenFileNameChars = `<>:"/\|?*`

// FileMeta describes an uploaded resume. Head holds the leading bytes of the
// content when they are available; it may be empty.
type FileMeta struct {
	Name      string
	MIMEType  string
	SizeBytes int64
	Head      []byte
}

type documentKind string

const (
	kindPDF  documentKind = "pdf"
	kindDOC  documentKind = "doc"
	kindDOCX documentKind = "docx"
)

var extensionKinds = map[string]documentKind{
	".pdf":  kindPDF,
	".doc":  kindDOC,
	".docx": kindDOCX,
}

var mimeKinds = map[string]documentKind{
	"application/pdf":    kindPDF,
	"application/msword": kindDOC,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": kindDOCX,
}

// Magic byte signatures per accepted document kind
var magicBytes = map[documentKind][]byte{
	kindPDF:  {0x25, 0x50, 0x44, 0x46},                         // %PDF
	kindDOC:  {0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}, // OLE Compound Document
	kindDOCX: {0x50, 0x4B, 0x03, 0x04},                         // ZIP (PK..)
}

// ValidateResumeFile checks name, type and size of an uploaded resume:
// 1. File name length and forbidden characters
// 2. Type: extension or MIME type must be pdf, doc or docx
// 3. Size in (1KB, 5MB]
// 4. Leading bytes, when present, must match the declared document kind
func ValidateResumeFile(f FileMeta) Result {
	name := f.Name
	if strings.TrimSpace(name) == "" {
		return invalid("File name is required")
	}
	if utf8.RuneCountInString(name) > MaxFileNameLength {
		return invalid(fmt.Sprintf("File name must be at most %d characters long", MaxFileNameLength))
	}
	if strings.ContainsAny(name, forbiddenFileNameChars) {
		return invalid(`File name must not contain any of < > : " / \ | ? *`)
	}

	kind, ok := resolveKind(name, f.MIMEType)
	if !ok {
		return invalid("Only PDF, DOC or DOCX files are accepted")
	}

	if f.SizeBytes <= MinResumeBytes {
		return invalid("File is too small. It must be larger than 1KB")
	}
	if f.SizeBytes > MaxResumeBytes {
		return invalid("File is too large. The maximum size is 5MB")
	}

	if len(f.Head) > 0 && !bytes.HasPrefix(f.Head, magicBytes[kind]) {
		return invalid("File content does not look like a " + strings.ToUpper(string(kind)) + " document")
	}

	return valid()
}

// resolveKind prefers the extension and falls back to the declared MIME type
func resolveKind(name, mimeType string) (documentKind, bool) {
	ext := strings.ToLower(filepath.Ext(name))
	if kind, ok := extensionKinds[ext]; ok {
		return kind, true
	}

	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = strings.TrimSpace(mimeType[:i])
	}
	kind, ok := mimeKinds[mimeType]
	return kind, ok
}

// AllowedResumeExtensions lists accepted extensions for upload widgets
func AllowedResumeExtensions() []string {
	return []string{".pdf", ".doc", ".docx"}
}
