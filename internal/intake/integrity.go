package intake

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/credflow/credflow-backend/internal/review/domain"
)

const (
	// minFileSize is the smallest byte count a viable PDF can have
	minFileSize = 1000
	// minExtractableText is the minimum total text a readable data
	// summary yields; less than this means a corrupted or scanned-only file
	minExtractableText = 100
)

var (
	pdfMagic   = []byte("%PDF-")
	pdfTrailer = []byte("%%EOF")
)

// IntegrityChecker is the first intake gate: it rejects files that are
// empty, truncated, oversized or not PDFs at all, before any text is
// looked at.
type IntegrityChecker struct {
	maxFileSize int64
}

// NewIntegrityChecker creates an integrity checker with the given upper
// size bound in bytes
func NewIntegrityChecker(maxFileSize int64) *IntegrityChecker {
	return &IntegrityChecker{maxFileSize: maxFileSize}
}

// CheckBytes validates the raw uploaded file
func (c *IntegrityChecker) CheckBytes(filename string, data []byte) error {
	if !strings.HasSuffix(strings.ToLower(filename), ".pdf") {
		return &GateError{Gate: GateIntegrity, Reason: fmt.Sprintf("%s is not a PDF file", filename)}
	}
	if len(data) == 0 {
		return &GateError{Gate: GateIntegrity, Reason: "file is empty"}
	}
	if int64(len(data)) < minFileSize {
		return &GateError{Gate: GateIntegrity, Reason: fmt.Sprintf("file is only %d bytes, too small to be a valid PDF", len(data))}
	}
	if c.maxFileSize > 0 && int64(len(data)) > c.maxFileSize {
		return &GateError{Gate: GateIntegrity, Reason: fmt.Sprintf("file is %d bytes, above the %d byte limit", len(data), c.maxFileSize)}
	}
	if !bytes.HasPrefix(data, pdfMagic) {
		return &GateError{Gate: GateIntegrity, Reason: "file does not start with a PDF header"}
	}
	if !bytes.Contains(data[len(data)-min(len(data), 1024):], pdfTrailer) {
		return &GateError{Gate: GateIntegrity, Reason: "PDF trailer is missing, file appears truncated"}
	}
	return nil
}

// CheckText validates that the resolved page text is substantial enough
// to review
func (c *IntegrityChecker) CheckText(pages []domain.Page) error {
	total := 0
	for _, page := range pages {
		total += len(strings.TrimSpace(page.Text))
	}
	if total < minExtractableText {
		return &GateError{
			Gate:   GateIntegrity,
			Reason: fmt.Sprintf("only %d characters of text could be extracted, document is unreadable", total),
		}
	}
	return nil
}
