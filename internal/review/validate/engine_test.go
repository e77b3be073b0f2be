package validate_test

import (
	"strings"
	"testing"
	"time"

	"github.com/credflow/credflow-backend/internal/review/catalog"
	"github.com/credflow/credflow-backend/internal/review/domain"
	"github.com/credflow/credflow-backend/internal/review/validate"
)

const testCatalogYAML = `
fields:
  - id: medicaid_id
    display_name: Medicaid ID
    labels: ["Medicaid ID"]
    kind: medicaid-id
    required: true
  - id: ssn
    display_name: Social Security Number
    labels: ["SSN"]
    kind: ssn
    required: true
  - id: individual_npi
    display_name: Individual NPI
    labels: ["Individual NPI"]
    kind: npi
    required: true
  - id: license_expiration
    display_name: License Expiration Date
    labels: ["License Expiration Date"]
    kind: date
    required: true
    checks:
      - rule: date_after_submission
  - id: license_number
    display_name: License Number
    labels: ["License Number"]
    kind: policy-number
  - id: license_state
    display_name: License State
    labels: ["License State"]
    kind: state
    checks:
      - rule: requires
        depends_on: license_number
  - id: organizational_npi
    display_name: Organizational NPI
    labels: ["Organizational NPI"]
    kind: npi
    checks:
      - rule: distinct_from
        depends_on: individual_npi
`

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.Load([]byte(testCatalogYAML))
	if err != nil {
		t.Fatalf("catalog failed to load: %v", err)
	}
	return cat
}

// found builds an extracted field carrying a value
func found(id, value string, conf float64) domain.ExtractedField {
	raw := value
	return domain.ExtractedField{
		FieldID:    id,
		Raw:        &raw,
		Normalized: value,
		Method:     domain.MethodDirectLabel,
		Confidence: conf,
	}
}

func absent(id string) domain.ExtractedField {
	return domain.ExtractedField{FieldID: id, Method: domain.MethodNotFound}
}

// baseFields returns a fully valid extraction set
func baseFields() []domain.ExtractedField {
	return []domain.ExtractedField{
		found("medicaid_id", "AB12345678", 0.95),
		found("ssn", "123456789", 0.95),
		found("individual_npi", "1234567893", 0.95),
		found("license_expiration", "2099-12-31", 0.95),
		absent("license_number"),
		absent("license_state"),
		absent("organizational_npi"),
	}
}

func replace(fields []domain.ExtractedField, f domain.ExtractedField) []domain.ExtractedField {
	for i := range fields {
		if fields[i].FieldID == f.FieldID {
			fields[i] = f
		}
	}
	return fields
}

func verdictFor(t *testing.T, verdicts []domain.FieldVerdict, id string) domain.FieldVerdict {
	t.Helper()
	for _, v := range verdicts {
		if v.FieldID == id {
			return v
		}
	}
	t.Fatalf("no verdict for %s", id)
	return domain.FieldVerdict{}
}

var submitted = time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)

func TestValidate_AllValid(t *testing.T) {
	engine := validate.NewEngine(testCatalog(t), 0.70)

	verdicts := engine.ValidateAll(baseFields(), submitted)

	if len(verdicts) != 7 {
		t.Fatalf("got %d verdicts, want 7", len(verdicts))
	}
	for _, v := range verdicts {
		if v.State != domain.VerdictValid {
			t.Errorf("%s = %s (%s), want VALID", v.FieldID, v.State, v.Reason)
		}
	}
}

func TestValidate_MissingRequired(t *testing.T) {
	engine := validate.NewEngine(testCatalog(t), 0.70)

	fields := replace(baseFields(), absent("medicaid_id"))
	verdicts := engine.ValidateAll(fields, submitted)

	v := verdictFor(t, verdicts, "medicaid_id")
	if v.State != domain.VerdictMissing {
		t.Fatalf("state = %s, want MISSING", v.State)
	}
	if v.Reason != "missing required field" {
		t.Errorf("reason = %q", v.Reason)
	}
}

func TestValidate_OptionalAbsentIsValid(t *testing.T) {
	engine := validate.NewEngine(testCatalog(t), 0.70)

	verdicts := engine.ValidateAll(baseFields(), submitted)

	if v := verdictFor(t, verdicts, "license_number"); v.State != domain.VerdictValid {
		t.Errorf("absent optional field = %s, want VALID", v.State)
	}
}

func TestValidate_InvalidFormat(t *testing.T) {
	engine := validate.NewEngine(testCatalog(t), 0.70)

	tests := []struct {
		name  string
		field domain.ExtractedField
	}{
		{"ssn too short", found("ssn", "12345", 0.95)},
		{"ssn area 000", found("ssn", "000456789", 0.95)},
		{"ssn area 666", found("ssn", "666456789", 0.95)},
		{"ssn area 9xx", found("ssn", "912345678", 0.95)},
		{"ssn group 00", found("ssn", "123006789", 0.95)},
		{"ssn serial 0000", found("ssn", "123450000", 0.95)},
		{"npi bad checksum", found("individual_npi", "1234567890", 0.95)},
		{"npi too short", found("individual_npi", "12345", 0.95)},
		{"date gibberish", found("license_expiration", "eventually", 0.95)},
		{"state unknown", found("license_state", "ZZ", 0.95)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verdicts := engine.ValidateAll(replace(baseFields(), tt.field), submitted)
			v := verdictFor(t, verdicts, tt.field.FieldID)
			if v.State != domain.VerdictInvalidFormat {
				t.Errorf("state = %s (%s), want INVALID_FORMAT", v.State, v.Reason)
			}
			if v.Reason == "" {
				t.Error("reason is empty")
			}
		})
	}
}

func TestValidate_NPIChecksumPasses(t *testing.T) {
	engine := validate.NewEngine(testCatalog(t), 0.70)

	verdicts := engine.ValidateAll(baseFields(), submitted)

	if v := verdictFor(t, verdicts, "individual_npi"); v.State != domain.VerdictValid {
		t.Errorf("valid NPI with good checksum = %s (%s)", v.State, v.Reason)
	}
}

func TestValidate_LowConfidence(t *testing.T) {
	engine := validate.NewEngine(testCatalog(t), 0.70)

	fields := replace(baseFields(), found("medicaid_id", "AB12345678", 0.55))
	verdicts := engine.ValidateAll(fields, submitted)

	v := verdictFor(t, verdicts, "medicaid_id")
	if v.State != domain.VerdictLowConfidence {
		t.Fatalf("state = %s, want LOW_CONFIDENCE", v.State)
	}
	if !strings.Contains(v.Reason, "0.55") {
		t.Errorf("reason %q should carry the confidence value", v.Reason)
	}
}

func TestValidate_ExpiredLicenseFailsCrossCheck(t *testing.T) {
	engine := validate.NewEngine(testCatalog(t), 0.70)

	fields := replace(baseFields(), found("license_expiration", "2020-01-01", 0.95))
	verdicts := engine.ValidateAll(fields, submitted)

	v := verdictFor(t, verdicts, "license_expiration")
	if v.State != domain.VerdictFailedCrossCheck {
		t.Fatalf("state = %s, want FAILED_CROSS_CHECK", v.State)
	}
	if !strings.Contains(v.Reason, "before the submission date") {
		t.Errorf("reason = %q", v.Reason)
	}
}

func TestValidate_RequiresDependencyPresent(t *testing.T) {
	engine := validate.NewEngine(testCatalog(t), 0.70)

	// license_state present but license_number absent
	fields := replace(baseFields(), found("license_state", "FL", 0.95))
	verdicts := engine.ValidateAll(fields, submitted)

	v := verdictFor(t, verdicts, "license_state")
	if v.State != domain.VerdictFailedCrossCheck {
		t.Fatalf("state = %s, want FAILED_CROSS_CHECK", v.State)
	}

	// With the dependency present the same value passes
	fields = replace(fields, found("license_number", "PSY-12345", 0.95))
	verdicts = engine.ValidateAll(fields, submitted)
	if v := verdictFor(t, verdicts, "license_state"); v.State != domain.VerdictValid {
		t.Errorf("state = %s (%s), want VALID", v.State, v.Reason)
	}
}

func TestValidate_DistinctFrom(t *testing.T) {
	engine := validate.NewEngine(testCatalog(t), 0.70)

	// Same NPI entered for both individual and organizational
	fields := replace(baseFields(), found("organizational_npi", "1234567893", 0.95))
	verdicts := engine.ValidateAll(fields, submitted)

	v := verdictFor(t, verdicts, "organizational_npi")
	if v.State != domain.VerdictFailedCrossCheck {
		t.Fatalf("state = %s, want FAILED_CROSS_CHECK", v.State)
	}
	if !strings.Contains(v.Reason, "Individual NPI") {
		t.Errorf("reason %q should name the conflicting field", v.Reason)
	}
}

func TestValidate_DanglingDependencyIsCrossCheckFailure(t *testing.T) {
	engine := validate.NewEngine(testCatalog(t), 0.70)

	// Simulate a broken extraction set missing the dependency entirely.
	// The dependent field must fail its check, not crash the run.
	var fields []domain.ExtractedField
	for _, f := range baseFields() {
		if f.FieldID == "license_number" {
			continue
		}
		fields = append(fields, f)
	}
	fields = replace(fields, found("license_state", "FL", 0.95))

	verdicts := engine.ValidateAll(fields, submitted)

	v := verdictFor(t, verdicts, "license_state")
	if v.State != domain.VerdictFailedCrossCheck {
		t.Fatalf("state = %s, want FAILED_CROSS_CHECK", v.State)
	}
	if !strings.Contains(v.Reason, "not extracted") {
		t.Errorf("reason = %q", v.Reason)
	}
}

func TestValidate_CompletenessEvenWithShortInput(t *testing.T) {
	engine := validate.NewEngine(testCatalog(t), 0.70)

	// Validation repairs a missing entry instead of dropping the field
	verdicts := engine.ValidateAll([]domain.ExtractedField{found("ssn", "123456789", 0.95)}, submitted)

	if len(verdicts) != 7 {
		t.Fatalf("got %d verdicts, want 7", len(verdicts))
	}
	if v := verdictFor(t, verdicts, "medicaid_id"); v.State != domain.VerdictMissing {
		t.Errorf("repaired absent field = %s, want MISSING", v.State)
	}
}
