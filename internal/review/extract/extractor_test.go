package extract_test

import (
	"reflect"
	"testing"

	"github.com/credflow/credflow-backend/internal/review/catalog"
	"github.com/credflow/credflow-backend/internal/review/domain"
	"github.com/credflow/credflow-backend/internal/review/extract"
)

func mustCatalog(t *testing.T, yaml string) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.Load([]byte(yaml))
	if err != nil {
		t.Fatalf("catalog failed to load: %v", err)
	}
	return cat
}

func singlePage(text string) *domain.Document {
	return &domain.Document{
		ID:       "doc-1",
		Filename: "summary.pdf",
		Pages:    []domain.Page{{Index: 0, Text: text}},
	}
}

func extractOne(t *testing.T, cat *catalog.Catalog, doc *domain.Document) domain.ExtractedField {
	t.Helper()
	fields, err := extract.NewEngine(cat).ExtractAll(doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(fields) != 1 {
		t.Fatalf("got %d fields, want 1", len(fields))
	}
	return fields[0]
}

func TestExtract_DirectLabelMatch(t *testing.T) {
	cat := mustCatalog(t, `
fields:
  - id: npi
    display_name: NPI
    labels: ["NPI"]
    kind: npi
`)

	field := extractOne(t, cat, singlePage("NPI: 1234567893"))

	if !field.Found() {
		t.Fatal("field not found")
	}
	if field.Method != domain.MethodDirectLabel {
		t.Errorf("method = %s, want %s", field.Method, domain.MethodDirectLabel)
	}
	if field.Normalized != "1234567893" {
		t.Errorf("normalized = %q, want 1234567893", field.Normalized)
	}
	if field.Confidence < 0.90 {
		t.Errorf("confidence = %v, want high band", field.Confidence)
	}
	if field.Location == nil || field.Location.Page != 0 || field.Location.Line != 0 {
		t.Errorf("location = %+v, want page 0 line 0", field.Location)
	}
}

func TestExtract_SectionScopedPrefersCorrectSection(t *testing.T) {
	cat := mustCatalog(t, `
sections:
  - Professional IDs
  - Practice Locations
fields:
  - id: license_number
    display_name: License Number
    labels: ["License Number"]
    kind: policy-number
    section: Professional IDs
`)

	doc := singlePage("Practice Locations\n" +
		"License Number: WRONG999\n" +
		"Professional IDs\n" +
		"License Number: RIGHT123\n")

	field := extractOne(t, cat, doc)

	if field.Normalized != "RIGHT123" {
		t.Errorf("normalized = %q, want the value from the declared section", field.Normalized)
	}
	if field.Method != domain.MethodSectionScoped {
		t.Errorf("method = %s, want %s", field.Method, domain.MethodSectionScoped)
	}
}

func TestExtract_NextLineCapture(t *testing.T) {
	cat := mustCatalog(t, `
fields:
  - id: ssn
    display_name: SSN
    labels: ["SSN"]
    kind: ssn
`)

	field := extractOne(t, cat, singlePage("SSN:\n123-45-6789"))

	if !field.Found() {
		t.Fatal("field not found")
	}
	if field.Normalized != "123456789" {
		t.Errorf("normalized = %q, want digits only", field.Normalized)
	}
	if field.Location == nil || field.Location.Line != 1 {
		t.Errorf("location = %+v, want line 1", field.Location)
	}
}

func TestExtract_BidirectionalFallback(t *testing.T) {
	cat := mustCatalog(t, `
fields:
  - id: individual_npi
    display_name: Individual NPI
    labels: ["Individual NPI"]
    kind: npi
`)

	// Some layouts print the value on the line before its label
	field := extractOne(t, cat, singlePage("1234567893\nIndividual NPI"))

	if !field.Found() {
		t.Fatal("field not found, bidirectional fallback did not fire")
	}
	if field.Method != domain.MethodBidirectional {
		t.Errorf("method = %s, want %s", field.Method, domain.MethodBidirectional)
	}
	if field.Normalized != "1234567893" {
		t.Errorf("normalized = %q, want 1234567893", field.Normalized)
	}
}

func TestExtract_PlaceholderCountsAsNotFound(t *testing.T) {
	cat := mustCatalog(t, `
fields:
  - id: medicaid_id
    display_name: Medicaid ID
    labels: ["Medicaid ID"]
    kind: medicaid-id
`)

	tests := []struct {
		name string
		text string
	}{
		{"n/a", "Medicaid ID: N/A"},
		{"dash", "Medicaid ID: -"},
		{"underline", "Medicaid ID: ________"},
		{"none", "Medicaid ID: none"},
		{"empty", "Medicaid ID:"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			field := extractOne(t, cat, singlePage(tt.text))
			if field.Found() {
				t.Errorf("placeholder %q extracted as %q, want not-found", tt.text, field.Normalized)
			}
			if field.Method != domain.MethodNotFound {
				t.Errorf("method = %s, want %s", field.Method, domain.MethodNotFound)
			}
			if field.Confidence != 0.0 {
				t.Errorf("confidence = %v, want 0.0", field.Confidence)
			}
		})
	}
}

func TestExtract_AmbiguityLowersConfidence(t *testing.T) {
	cat := mustCatalog(t, `
fields:
  - id: npi
    display_name: NPI
    labels: ["NPI"]
    kind: npi
`)

	field := extractOne(t, cat, singlePage("NPI: 1234567893\nNPI: 9876543210"))

	if !field.Found() {
		t.Fatal("field not found")
	}
	// First occurrence in document order wins
	if field.Normalized != "1234567893" {
		t.Errorf("normalized = %q, want first occurrence", field.Normalized)
	}
	if field.Confidence >= 0.70 {
		t.Errorf("confidence = %v, want low band for ambiguous extraction", field.Confidence)
	}
}

func TestExtract_CompletenessInvariant(t *testing.T) {
	cat, err := catalog.Default()
	if err != nil {
		t.Fatalf("default catalog: %v", err)
	}

	// A document containing none of the declared labels still yields one
	// field per definition
	fields, err := extract.NewEngine(cat).ExtractAll(singlePage("nothing relevant here"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(fields) != cat.Len() {
		t.Fatalf("got %d fields, want %d", len(fields), cat.Len())
	}
	for i, field := range fields {
		if field.FieldID != cat.Fields[i].ID {
			t.Errorf("field %d = %s, want declaration order (%s)", i, field.FieldID, cat.Fields[i].ID)
		}
		if field.Found() {
			t.Errorf("field %s found in empty document", field.FieldID)
		}
	}
}

func TestExtract_EmptyInputStillComplete(t *testing.T) {
	cat, err := catalog.Default()
	if err != nil {
		t.Fatalf("default catalog: %v", err)
	}
	engine := extract.NewEngine(cat)

	for _, doc := range []*domain.Document{
		{ID: "no-pages"},
		{ID: "blank-pages", Pages: []domain.Page{{Index: 0, Text: "   \n  "}}},
	} {
		fields, err := engine.ExtractAll(doc)
		if err == nil {
			t.Errorf("%s: expected an extraction input error", doc.ID)
		}
		if len(fields) != cat.Len() {
			t.Errorf("%s: got %d fields, want %d", doc.ID, len(fields), cat.Len())
		}
	}
}

func TestExtract_Idempotent(t *testing.T) {
	cat := mustCatalog(t, `
sections:
  - Personal Information
fields:
  - id: ssn
    display_name: SSN
    labels: ["Social Security Number", "SSN"]
    kind: ssn
    section: Personal Information
  - id: npi
    display_name: NPI
    labels: ["NPI"]
    kind: npi
`)
	engine := extract.NewEngine(cat)
	doc := singlePage("Personal Information\nSocial Security Number: 123-45-6789\nNPI: 1234567893")

	first, err := engine.ExtractAll(doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := engine.ExtractAll(doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Errorf("extraction not idempotent:\nfirst:  %+v\nsecond: %+v", first, second)
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name          string
		raw           string
		kind          catalog.FieldKind
		want          string
		wantCorrected bool
	}{
		{"us date", "06/15/2030", catalog.KindDate, "2030-06-15", true},
		{"spelled date", "June 15, 2030", catalog.KindDate, "2030-06-15", true},
		{"iso date unchanged", "2030-06-15", catalog.KindDate, "2030-06-15", false},
		{"ssn digits only", "123-45-6789", catalog.KindSSN, "123456789", true},
		{"npi unchanged", "1234567893", catalog.KindNPI, "1234567893", false},
		{"phone digits only", "(555) 123-4567", catalog.KindPhone, "5551234567", true},
		{"state uppercased", "fl", catalog.KindState, "FL", true},
		{"email lowercased", "Provider@Example.COM", catalog.KindEmail, "provider@example.com", true},
		{"zip plus four kept", "33301-1234", catalog.KindZip, "33301-1234", false},
		{"text whitespace collapsed", "  Positive   Behavior  ", catalog.KindText, "Positive Behavior", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, corrected := extract.Normalize(tt.raw, tt.kind)
			if got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.raw, got, tt.want)
			}
			if corrected != tt.wantCorrected {
				t.Errorf("Normalize(%q) corrected = %v, want %v", tt.raw, corrected, tt.wantCorrected)
			}
		})
	}
}
