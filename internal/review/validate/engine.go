// Package validate turns extracted fields into per-field verdicts. Every
// declared field receives exactly one verdict; validators never mutate
// the extracted fields they read.
package validate

import (
	"fmt"
	"time"

	"github.com/credflow/credflow-backend/internal/review/catalog"
	"github.com/credflow/credflow-backend/internal/review/domain"
)

// Engine validates one document's extracted fields against the catalog
type Engine struct {
	cat       *catalog.Catalog
	threshold float64
}

// NewEngine creates a validation engine. threshold is the confidence
// below which a well-formed value is routed to human review.
func NewEngine(cat *catalog.Catalog, threshold float64) *Engine {
	return &Engine{cat: cat, threshold: threshold}
}

// ValidateAll produces one FieldVerdict per declared field, in catalog
// declaration order. It must only be called once the extraction phase is
// complete: cross-field rules read sibling values.
func (e *Engine) ValidateAll(fields []domain.ExtractedField, submittedAt time.Time) []domain.FieldVerdict {
	checker := newCrossChecker(e.cat, fields, submittedAt)

	byID := make(map[string]*domain.ExtractedField, len(fields))
	for i := range fields {
		byID[fields[i].FieldID] = &fields[i]
	}

	verdicts := make([]domain.FieldVerdict, 0, e.cat.Len())
	for i := range e.cat.Fields {
		def := &e.cat.Fields[i]
		field, ok := byID[def.ID]
		if !ok {
			// Extraction broke the one-field-per-definition invariant;
			// treat it as an absent value rather than dropping the field.
			absent := domain.ExtractedField{FieldID: def.ID, Method: domain.MethodNotFound}
			field = &absent
		}
		verdicts = append(verdicts, e.validateField(def, field, checker))
	}
	return verdicts
}

func (e *Engine) validateField(def *catalog.FieldDefinition, field *domain.ExtractedField, checker *crossChecker) domain.FieldVerdict {
	verdict := domain.FieldVerdict{FieldID: def.ID, Field: field}

	if !field.Found() {
		if def.Required {
			verdict.State = domain.VerdictMissing
			verdict.Reason = "missing required field"
		} else {
			verdict.State = domain.VerdictValid
		}
		return verdict
	}

	if err := validatorFor(def.Kind).Check(def, field.Normalized); err != nil {
		verdict.State = domain.VerdictInvalidFormat
		verdict.Reason = err.Error()
		return verdict
	}

	if err := checker.check(def, field); err != nil {
		verdict.State = domain.VerdictFailedCrossCheck
		verdict.Reason = err.Error()
		return verdict
	}

	if field.Confidence < e.threshold {
		verdict.State = domain.VerdictLowConfidence
		verdict.Reason = fmt.Sprintf("low confidence extraction (%.2f), needs human review", field.Confidence)
		return verdict
	}

	verdict.State = domain.VerdictValid
	return verdict
}
