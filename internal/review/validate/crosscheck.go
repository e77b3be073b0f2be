package validate

import (
	"fmt"
	"time"

	"github.com/credflow/credflow-backend/internal/review/catalog"
	"github.com/credflow/credflow-backend/internal/review/domain"
)

// crossChecker evaluates the catalog's cross-field dependency graph over
// one document's complete set of extracted fields. It is built only
// after the extraction phase finishes, so every lookup sees final values.
type crossChecker struct {
	cat         *catalog.Catalog
	byID        map[string]*domain.ExtractedField
	submittedAt time.Time
}

func newCrossChecker(cat *catalog.Catalog, fields []domain.ExtractedField, submittedAt time.Time) *crossChecker {
	byID := make(map[string]*domain.ExtractedField, len(fields))
	for i := range fields {
		byID[fields[i].FieldID] = &fields[i]
	}
	return &crossChecker{cat: cat, byID: byID, submittedAt: submittedAt}
}

// check runs every declared cross-field rule for one extracted field and
// returns the first violation. Rules are vacuous when the field itself
// was not found; absence is the required/missing check's concern. A rule
// whose dependency never produced an ExtractedField is itself a defect
// on the dependent field, reported rather than raised.
func (c *crossChecker) check(def *catalog.FieldDefinition, field *domain.ExtractedField) error {
	if !field.Found() {
		return nil
	}
	for _, rule := range def.Checks {
		var err error
		switch rule.Rule {
		case catalog.RuleDateAfterSubmission:
			err = c.dateAfterSubmission(field)
		case catalog.RuleRequires:
			err = c.requires(rule.DependsOn)
		case catalog.RuleDistinctFrom:
			err = c.distinctFrom(field, rule.DependsOn)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (c *crossChecker) dateAfterSubmission(field *domain.ExtractedField) error {
	date, err := parseDate(field.Normalized)
	if err != nil {
		// Format validation reports unparseable dates
		return nil
	}
	submitted := c.submittedAt.Truncate(24 * time.Hour)
	if date.Before(submitted) {
		return fmt.Errorf("dated %s, before the submission date", field.Normalized)
	}
	return nil
}

func (c *crossChecker) requires(dependsOn string) error {
	dep, ok := c.byID[dependsOn]
	if !ok {
		return c.danglingDependency(dependsOn)
	}
	if !dep.Found() {
		return fmt.Errorf("requires %s to be present", c.displayName(dependsOn))
	}
	return nil
}

func (c *crossChecker) distinctFrom(field *domain.ExtractedField, dependsOn string) error {
	dep, ok := c.byID[dependsOn]
	if !ok {
		return c.danglingDependency(dependsOn)
	}
	if dep.Found() && dep.Normalized == field.Normalized {
		return fmt.Errorf("must differ from %s", c.displayName(dependsOn))
	}
	return nil
}

// danglingDependency covers the rule-error path: a check referencing a
// field that produced no ExtractedField fails the dependent field instead
// of crashing the run.
func (c *crossChecker) danglingDependency(dependsOn string) error {
	return fmt.Errorf("cross-check references field %q which was not extracted", dependsOn)
}

func (c *crossChecker) displayName(id string) string {
	if def, ok := c.cat.Field(id); ok {
		return def.DisplayName
	}
	return id
}
