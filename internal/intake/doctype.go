package intake

import (
	"fmt"
	"strings"

	"github.com/credflow/credflow-backend/internal/review/domain"
)

// marker pairs a search string with the reviewer-facing description used
// when it is absent
type marker struct {
	text        string
	description string
}

// requiredMarkers must all appear in a genuine CAQH data summary
var requiredMarkers = []marker{
	{"caqh", "CAQH reference or branding"},
	{"data summary", "Data Summary title"},
	{"provider", "Provider information section"},
}

// expectedSections are section cues; at least two must be present
var expectedSections = []marker{
	{"individual npi", "Individual NPI field"},
	{"practice location", "Practice Location section"},
	{"professional license", "Professional License section"},
	{"education", "Education section"},
	{"social security", "Social Security Number field"},
}

// wrongDocumentPatterns identify files users commonly upload by mistake
var wrongDocumentPatterns = []marker{
	{"liability coverage", "an insurance liability document"},
	{"insurance certificate", "an insurance certificate"},
	{"curriculum vitae", "a curriculum vitae"},
	{"resume", "a resume"},
	{"attestation letter", "an attestation letter"},
	{"reference letter", "a reference letter"},
}

// minDocumentLength is the character floor for a plausible data summary
const minDocumentLength = 2000

// TypeChecker is the second intake gate: it verifies the uploaded text
// is actually a CAQH data summary and not some other credentialing
// artifact, short-circuiting review of the wrong document entirely.
type TypeChecker struct{}

// Check validates the document type from its resolved page text
func (TypeChecker) Check(pages []domain.Page) error {
	var b strings.Builder
	for _, page := range pages {
		b.WriteString(page.Text)
		b.WriteString("\n")
	}
	text := strings.ToLower(b.String())

	var missing []string
	for _, m := range requiredMarkers {
		if !strings.Contains(text, m.text) {
			missing = append(missing, m.description)
		}
	}

	// Wrong-document patterns only matter when the CAQH markers are
	// absent; a real data summary may legitimately mention insurance.
	if len(missing) > 0 {
		for _, p := range wrongDocumentPatterns {
			if strings.Contains(text, p.text) {
				return &GateError{
					Gate:   GateDocumentType,
					Reason: fmt.Sprintf("document appears to be %s, not a CAQH data summary", p.description),
				}
			}
		}
		return &GateError{
			Gate:   GateDocumentType,
			Reason: fmt.Sprintf("document is missing required CAQH markers: %s", strings.Join(missing, ", ")),
		}
	}

	if len(text) < minDocumentLength {
		return &GateError{
			Gate:   GateDocumentType,
			Reason: fmt.Sprintf("document is only %d characters, too short for a data summary", len(text)),
		}
	}

	sections := 0
	for _, s := range expectedSections {
		if strings.Contains(text, s.text) {
			sections++
		}
	}
	if sections < 2 {
		return &GateError{
			Gate:   GateDocumentType,
			Reason: fmt.Sprintf("document contains %d of the expected data summary sections, at least 2 are required", sections),
		}
	}

	return nil
}
