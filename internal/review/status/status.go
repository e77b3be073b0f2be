// Package status aggregates per-field verdicts into the document-level
// outcome. It only reads; extracted fields and verdicts are never
// modified here.
package status

import (
	"fmt"

	"github.com/credflow/credflow-backend/internal/review/catalog"
	"github.com/credflow/credflow-backend/internal/review/domain"
)

// Determine maps a document's verdicts to its review status and the
// ordered reason list. A defect (missing, malformed, failed cross-check)
// on a required field rejects the document outright; any remaining
// defect or low-confidence extraction routes it to human review;
// otherwise it is approved. Reasons follow catalog declaration order and
// name both the field and the specific problem.
func Determine(cat *catalog.Catalog, verdicts []domain.FieldVerdict) (domain.ReviewStatus, []string) {
	rejected := false
	review := false
	var reasons []string

	for i := range verdicts {
		v := &verdicts[i]
		def, ok := cat.Field(v.FieldID)
		if !ok {
			continue
		}

		switch v.State {
		case domain.VerdictValid:
			continue
		case domain.VerdictMissing, domain.VerdictInvalidFormat, domain.VerdictFailedCrossCheck:
			if def.Required {
				rejected = true
			} else {
				review = true
			}
		case domain.VerdictLowConfidence:
			review = true
		}

		reasons = append(reasons, fmt.Sprintf("%s: %s", def.DisplayName, v.Reason))
	}

	switch {
	case rejected:
		return domain.StatusRejected, reasons
	case review:
		return domain.StatusNeedsReview, reasons
	default:
		return domain.StatusApproved, reasons
	}
}

// Summarize computes the confidence summary over the fields that were
// actually found. Documents where nothing was found summarize to zero.
func Summarize(fields []domain.ExtractedField) domain.ConfidenceSummary {
	var sum float64
	min := 1.0
	found := 0

	for i := range fields {
		if !fields[i].Found() {
			continue
		}
		found++
		sum += fields[i].Confidence
		if fields[i].Confidence < min {
			min = fields[i].Confidence
		}
	}

	if found == 0 {
		return domain.ConfidenceSummary{}
	}
	return domain.ConfidenceSummary{Min: min, Mean: sum / float64(found)}
}
