package domain

import (
	"strings"
	"time"
)

// ReviewStatus is the document-level outcome of a review run
type ReviewStatus string

const (
	StatusApproved    ReviewStatus = "APPROVED"
	StatusRejected    ReviewStatus = "REJECTED"
	StatusNeedsReview ReviewStatus = "NEEDS_REVIEW"
)

// VerdictState is the per-field outcome of validation
type VerdictState string

const (
	VerdictValid            VerdictState = "VALID"
	VerdictMissing          VerdictState = "MISSING"
	VerdictInvalidFormat    VerdictState = "INVALID_FORMAT"
	VerdictLowConfidence    VerdictState = "LOW_CONFIDENCE"
	VerdictFailedCrossCheck VerdictState = "FAILED_CROSS_CHECK"
)

// Extraction method tags recorded on every ExtractedField
const (
	MethodDirectLabel   = "direct-label-match"
	MethodSectionScoped = "section-scoped-match"
	MethodBidirectional = "bidirectional-fallback"
	MethodNotFound      = "not-found"
)

// Location points at the text span a value was captured from
type Location struct {
	Page int `json:"page"`
	Line int `json:"line"`
}

// ExtractedField is the immutable result of locating one declared field
// in a document. Exactly one exists per field definition per document,
// even when the value was not found (Raw nil, confidence 0.0).
type ExtractedField struct {
	FieldID    string    `json:"field_id"`
	Raw        *string   `json:"raw_value"`
	Normalized string    `json:"normalized_value,omitempty"`
	Location   *Location `json:"location,omitempty"`
	Method     string    `json:"method"`
	Confidence float64   `json:"confidence"`
}

// Found reports whether a value was captured for this field
func (f *ExtractedField) Found() bool {
	return f.Raw != nil
}

// FieldVerdict is the validation outcome for one extracted field
type FieldVerdict struct {
	FieldID string          `json:"field_id"`
	State   VerdictState    `json:"state"`
	Reason  string          `json:"reason,omitempty"`
	Field   *ExtractedField `json:"field"`
}

// ConfidenceSummary aggregates confidence over the fields that were found
type ConfidenceSummary struct {
	Min  float64 `json:"min"`
	Mean float64 `json:"mean"`
}

// DocumentVerdict is the terminal artifact of a review run. It is never
// mutated after creation; downstream reporting reads it only.
type DocumentVerdict struct {
	DocumentID string            `json:"document_id"`
	Status     ReviewStatus      `json:"status"`
	Verdicts   []FieldVerdict    `json:"verdicts"`
	Reasons    []string          `json:"reasons"`
	Confidence ConfidenceSummary `json:"confidence"`
	ReviewedAt time.Time         `json:"reviewed_at"`
	DurationMs int64             `json:"duration_ms"`
}

// Page is one page of already-resolved document text plus optional layout
// hints: line offsets (zero-based) of lines known to be section headers.
type Page struct {
	Index          int    `json:"index"`
	Text           string `json:"text"`
	SectionOffsets []int  `json:"section_offsets,omitempty"`
}

// Document is the input to a review run. Pages are ordered and their text
// is final; no OCR or re-recognition happens downstream of this point.
type Document struct {
	ID          string    `json:"id"`
	Filename    string    `json:"filename"`
	SubmittedAt time.Time `json:"submitted_at"`
	Pages       []Page    `json:"pages"`
}

// MaskValue keeps only the last four characters of a sensitive value
// visible. Shorter values are fully masked.
func MaskValue(value string) string {
	if value == "" {
		return ""
	}
	runes := []rune(value)
	if len(runes) <= 4 {
		return strings.Repeat("*", len(runes))
	}
	return strings.Repeat("*", len(runes)-4) + string(runes[len(runes)-4:])
}
