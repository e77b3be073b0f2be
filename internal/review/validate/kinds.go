package validate

import (
	"fmt"
	"strings"
	"time"

	"github.com/credflow/credflow-backend/internal/review/catalog"
)

// KindValidator checks a normalized value against the rules of one field
// kind. A nil return means the format is acceptable; a non-nil error
// carries the reviewer-visible defect description.
type KindValidator interface {
	Check(def *catalog.FieldDefinition, normalized string) error
}

// kindValidators is the closed dispatch set. Fields of an existing kind
// are added to the catalog without touching this table.
var kindValidators = map[catalog.FieldKind]KindValidator{
	catalog.KindSSN:          ssnValidator{},
	catalog.KindNPI:          npiValidator{},
	catalog.KindMedicaidID:   shapeValidator{},
	catalog.KindTaxID:        shapeValidator{},
	catalog.KindDate:         dateValidator{},
	catalog.KindPhone:        shapeValidator{},
	catalog.KindEmail:        shapeValidator{},
	catalog.KindZip:          shapeValidator{},
	catalog.KindState:        stateValidator{},
	catalog.KindPolicyNumber: shapeValidator{},
	catalog.KindText:         shapeValidator{},
}

// validatorFor returns the validator for a kind, falling back to the
// plain shape check for kinds without extra rules
func validatorFor(kind catalog.FieldKind) KindValidator {
	if v, ok := kindValidators[kind]; ok {
		return v
	}
	return shapeValidator{}
}

// shapeValidator applies only the field's expected shape
type shapeValidator struct{}

func (shapeValidator) Check(def *catalog.FieldDefinition, normalized string) error {
	if !def.MatchesShape(normalized) {
		return fmt.Errorf("value does not match the expected %s format", def.Kind)
	}
	return nil
}

// ssnValidator enforces the SSN shape plus the SSA issuance rules: area
// 000, 666 and 900-999 are never issued, group 00 and serial 0000 are
// invalid.
type ssnValidator struct{}

func (ssnValidator) Check(def *catalog.FieldDefinition, normalized string) error {
	if !def.MatchesShape(normalized) {
		return fmt.Errorf("value does not match the expected SSN format")
	}
	digits := strings.ReplaceAll(normalized, "-", "")
	area, group, serial := digits[0:3], digits[3:5], digits[5:9]
	if area == "000" || area == "666" || area[0] == '9' {
		return fmt.Errorf("SSN area number %s is never issued", area)
	}
	if group == "00" {
		return fmt.Errorf("SSN group number 00 is invalid")
	}
	if serial == "0000" {
		return fmt.Errorf("SSN serial number 0000 is invalid")
	}
	return nil
}

// npiValidator enforces the 10-digit shape plus the Luhn checksum with
// the 80840 US Health Industry Number prefix CMS uses for check digits.
type npiValidator struct{}

func (npiValidator) Check(def *catalog.FieldDefinition, normalized string) error {
	if !def.MatchesShape(normalized) {
		return fmt.Errorf("NPI must be exactly 10 digits")
	}
	if !luhnValid("80840" + normalized) {
		return fmt.Errorf("NPI fails the Luhn checksum")
	}
	return nil
}

// luhnValid runs the Luhn algorithm right to left
func luhnValid(number string) bool {
	sum := 0
	double := false
	for i := len(number) - 1; i >= 0; i-- {
		d := int(number[i] - '0')
		if d < 0 || d > 9 {
			return false
		}
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}

// stateValidator requires a real US state abbreviation, not just any two
// letters
type stateValidator struct{}

var usStates = map[string]bool{
	"AL": true, "AK": true, "AZ": true, "AR": true, "CA": true,
	"CO": true, "CT": true, "DE": true, "FL": true, "GA": true,
	"HI": true, "ID": true, "IL": true, "IN": true, "IA": true,
	"KS": true, "KY": true, "LA": true, "ME": true, "MD": true,
	"MA": true, "MI": true, "MN": true, "MS": true, "MO": true,
	"MT": true, "NE": true, "NV": true, "NH": true, "NJ": true,
	"NM": true, "NY": true, "NC": true, "ND": true, "OH": true,
	"OK": true, "OR": true, "PA": true, "RI": true, "SC": true,
	"SD": true, "TN": true, "TX": true, "UT": true, "VT": true,
	"VA": true, "WA": true, "WV": true, "WI": true, "WY": true,
}

func (stateValidator) Check(def *catalog.FieldDefinition, normalized string) error {
	if !def.MatchesShape(normalized) {
		return fmt.Errorf("value does not match the expected state format")
	}
	if !usStates[strings.ToUpper(normalized)] {
		return fmt.Errorf("%s is not a US state abbreviation", normalized)
	}
	return nil
}

// dateValidator requires the canonical calendar form produced by
// normalization. A date that survived extraction but never parsed is a
// format defect.
type dateValidator struct{}

func (dateValidator) Check(def *catalog.FieldDefinition, normalized string) error {
	if _, err := time.Parse("2006-01-02", normalized); err != nil {
		return fmt.Errorf("value is not a recognizable date")
	}
	return nil
}

// parseDate reads a canonical normalized date
func parseDate(normalized string) (time.Time, error) {
	return time.Parse("2006-01-02", normalized)
}
