package catalog

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-yaml"

	"github.com/credflow/credflow-backend/pkg/errors"
)

// FieldKind selects the extraction shape and validator for a field.
// Adding a field of an existing kind is a data-only change to the catalog.
type FieldKind string

const (
	KindSSN          FieldKind = "ssn"
	KindNPI          FieldKind = "npi"
	KindMedicaidID   FieldKind = "medicaid-id"
	KindTaxID        FieldKind = "tax-id"
	KindDate         FieldKind = "date"
	KindPhone        FieldKind = "phone"
	KindEmail        FieldKind = "email"
	KindZip          FieldKind = "zip"
	KindState        FieldKind = "state"
	KindPolicyNumber FieldKind = "policy-number"
	KindText         FieldKind = "text"
)

// Cross-check rule tags
const (
	RuleDateAfterSubmission = "date_after_submission"
	RuleRequires            = "requires"
	RuleDistinctFrom        = "distinct_from"
)

// kindShapes maps each kind to the canonical value shape used both for
// capture (does a candidate look like this field) and format validation.
var kindShapes = map[FieldKind]string{
	KindSSN:          `^\d{3}-?\d{2}-?\d{4}$`,
	KindNPI:          `^\d{10}$`,
	KindMedicaidID:   `^[A-Za-z0-9]{6,15}$`,
	KindTaxID:        `^\d{2}-?\d{7}$`,
	KindDate:         `^(\d{1,2}[/-]\d{1,2}[/-]\d{2,4}|\d{4}-\d{2}-\d{2}|[A-Za-z]{3,9}\.?\s+\d{1,2},?\s+\d{4})$`,
	KindPhone:        `^(\+?1[-.\s]?)?\(?\d{3}\)?[-.\s]?\d{3}[-.\s]?\d{4}$`,
	KindEmail:        `^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`,
	KindZip:          `^\d{5}(-\d{4})?$`,
	KindState:        `^[A-Za-z]{2}$`,
	KindPolicyNumber: `^[A-Za-z0-9][A-Za-z0-9-]{3,24}$`,
	KindText:         `^\S.*$`,
}

// CrossCheck declares a cross-field rule on the field that carries it.
// DependsOn names the other field for requires/distinct_from and stays
// empty for date_after_submission, whose reference point is the document
// submission timestamp.
type CrossCheck struct {
	Rule      string `yaml:"rule" validate:"required,oneof=date_after_submission requires distinct_from"`
	DependsOn string `yaml:"depends_on,omitempty"`
}

// FieldDefinition describes one field the review engine must locate and
// validate. Definitions are immutable after catalog load.
type FieldDefinition struct {
	ID          string       `yaml:"id" validate:"required"`
	DisplayName string       `yaml:"display_name" validate:"required"`
	Labels      []string     `yaml:"labels" validate:"required,min=1,dive,required"`
	Kind        FieldKind    `yaml:"kind" validate:"required"`
	Pattern     string       `yaml:"pattern,omitempty"`
	Required    bool         `yaml:"required"`
	Section     string       `yaml:"section,omitempty"`
	Mask        bool         `yaml:"mask"`
	Checks      []CrossCheck `yaml:"checks,omitempty"`

	shape *regexp.Regexp
}

// Shape returns the compiled value shape for this field
func (d *FieldDefinition) Shape() *regexp.Regexp {
	return d.shape
}

// MatchesShape reports whether a candidate value satisfies the field's shape
func (d *FieldDefinition) MatchesShape(value string) bool {
	return d.shape.MatchString(strings.TrimSpace(value))
}

// Catalog is the loaded, validated rule set for one run. Read-only after
// load; declaration order of Fields drives rejection-reason ordering.
type Catalog struct {
	Sections []string          `yaml:"sections"`
	Fields   []FieldDefinition `yaml:"fields" validate:"required,min=1,dive"`

	index map[string]int
}

// Field returns the definition with the given identifier
func (c *Catalog) Field(id string) (*FieldDefinition, bool) {
	i, ok := c.index[id]
	if !ok {
		return nil, false
	}
	return &c.Fields[i], true
}

// Len returns the number of declared fields
func (c *Catalog) Len() int {
	return len(c.Fields)
}

var validate = validator.New()

// Load parses and validates a catalog from YAML bytes. Any inconsistency
// (unknown kind, bad regex, dangling depends_on, dependency cycle) is
// fatal and reported before any document is processed.
func Load(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, errors.Configuration(fmt.Sprintf("rule catalog is not valid YAML: %v", err))
	}

	if err := validate.Struct(&c); err != nil {
		return nil, errors.Configuration(fmt.Sprintf("rule catalog failed structural validation: %v", err))
	}

	c.index = make(map[string]int, len(c.Fields))
	for i := range c.Fields {
		f := &c.Fields[i]

		if _, dup := c.index[f.ID]; dup {
			return nil, errors.Configuration(fmt.Sprintf("duplicate field id %q", f.ID))
		}
		c.index[f.ID] = i

		pattern, ok := kindShapes[f.Kind]
		if !ok {
			return nil, errors.Configuration(fmt.Sprintf("field %q has unknown kind %q", f.ID, f.Kind))
		}
		if f.Pattern != "" {
			pattern = f.Pattern
		}
		shape, err := regexp.Compile(pattern)
		if err != nil {
			return nil, errors.Configuration(fmt.Sprintf("field %q has invalid pattern: %v", f.ID, err))
		}
		f.shape = shape
	}

	// Cross-check references can only be verified once every id is known
	for i := range c.Fields {
		f := &c.Fields[i]
		for _, check := range f.Checks {
			switch check.Rule {
			case RuleDateAfterSubmission:
				if check.DependsOn != "" {
					return nil, errors.Configuration(fmt.Sprintf(
						"field %q: %s takes no depends_on", f.ID, check.Rule))
				}
			case RuleRequires, RuleDistinctFrom:
				if check.DependsOn == "" {
					return nil, errors.Configuration(fmt.Sprintf(
						"field %q: %s requires a depends_on field", f.ID, check.Rule))
				}
				if _, ok := c.index[check.DependsOn]; !ok {
					return nil, errors.Configuration(fmt.Sprintf(
						"field %q depends on undeclared field %q", f.ID, check.DependsOn))
				}
				if check.DependsOn == f.ID {
					return nil, errors.Configuration(fmt.Sprintf(
						"field %q depends on itself", f.ID))
				}
			}
		}
	}

	if cycle := findCycle(&c); cycle != "" {
		return nil, errors.Configuration(fmt.Sprintf("dependency cycle involving field %q", cycle))
	}

	return &c, nil
}

// LoadFile loads a catalog from a YAML file on disk
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Configuration(fmt.Sprintf("cannot read rule catalog %s: %v", path, err))
	}
	return Load(data)
}

// findCycle walks the depends_on graph and returns the id of a field on a
// cycle, or "" when the graph is acyclic.
func findCycle(c *Catalog) string {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int, len(c.Fields))

	var visit func(id string) string
	visit = func(id string) string {
		color[id] = gray
		f, _ := c.Field(id)
		for _, check := range f.Checks {
			if check.DependsOn == "" {
				continue
			}
			switch color[check.DependsOn] {
			case gray:
				return check.DependsOn
			case white:
				if hit := visit(check.DependsOn); hit != "" {
					return hit
				}
			}
		}
		color[id] = black
		return ""
	}

	for _, f := range c.Fields {
		if color[f.ID] == white {
			if hit := visit(f.ID); hit != "" {
				return hit
			}
		}
	}
	return ""
}
