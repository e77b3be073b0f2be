package extract

import (
	"regexp"
	"strings"

	"github.com/credflow/credflow-backend/internal/review/catalog"
	"github.com/credflow/credflow-backend/internal/review/confidence"
	"github.com/credflow/credflow-backend/internal/review/domain"
	"github.com/credflow/credflow-backend/pkg/errors"
)

// Engine locates every declared field in a document's page text via
// label-proximity search. It holds only the read-only catalog and the
// precompiled label matchers, so one engine serves concurrent documents.
type Engine struct {
	cat    *catalog.Catalog
	labels map[string][]*regexp.Regexp
}

// NewEngine compiles label matchers for every field in the catalog
func NewEngine(cat *catalog.Catalog) *Engine {
	e := &Engine{
		cat:    cat,
		labels: make(map[string][]*regexp.Regexp, cat.Len()),
	}
	for i := range cat.Fields {
		f := &cat.Fields[i]
		for _, label := range f.Labels {
			e.labels[f.ID] = append(e.labels[f.ID], labelPattern(label))
		}
	}
	return e
}

// labelPattern matches a label case-insensitively with collapsed
// whitespace and an optional trailing colon
func labelPattern(label string) *regexp.Regexp {
	words := strings.Fields(label)
	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = regexp.QuoteMeta(w)
	}
	return regexp.MustCompile(`(?i)\b` + strings.Join(quoted, `\s+`) + `\b\s*:?`)
}

// ExtractAll produces exactly one ExtractedField per declared field, in
// catalog declaration order, even when the input is unusable. A non-nil
// error means the text source delivered an unusable document; the caller
// must route the document to human review rather than approve it.
func (e *Engine) ExtractAll(doc *domain.Document) ([]domain.ExtractedField, error) {
	if inputErr := checkInput(doc); inputErr != nil {
		fields := make([]domain.ExtractedField, 0, e.cat.Len())
		for i := range e.cat.Fields {
			fields = append(fields, notFound(e.cat.Fields[i].ID))
		}
		return fields, inputErr
	}

	layout := BuildLayout(doc.Pages, e.cat.Sections)

	fields := make([]domain.ExtractedField, 0, e.cat.Len())
	for i := range e.cat.Fields {
		fields = append(fields, e.extractField(layout, &e.cat.Fields[i]))
	}
	return fields, nil
}

func checkInput(doc *domain.Document) error {
	if len(doc.Pages) == 0 {
		return errors.ExtractionInput("document has no pages")
	}
	for _, page := range doc.Pages {
		if strings.TrimSpace(page.Text) != "" {
			return nil
		}
	}
	return errors.ExtractionInput("document pages contain no text")
}

func notFound(fieldID string) domain.ExtractedField {
	return domain.ExtractedField{
		FieldID:    fieldID,
		Method:     domain.MethodNotFound,
		Confidence: 0.0,
	}
}

// capture is one candidate value located near a label occurrence
type capture struct {
	value  string
	loc    domain.Location
	strict bool
}

// extractField runs the per-field algorithm: label localization inside
// the field's section when one is declared and present, falling back to
// the full document; forward value capture, then the bidirectional
// fallback; normalization; scoring.
func (e *Engine) extractField(layout *Layout, f *catalog.FieldDefinition) domain.ExtractedField {
	if f.Section != "" {
		if span, ok := layout.Section(f.Section); ok {
			if field, ok := e.search(layout, f, span, domain.MethodSectionScoped); ok {
				return field
			}
		}
	}
	if field, ok := e.search(layout, f, layout.Full(), domain.MethodDirectLabel); ok {
		return field
	}
	return notFound(f.ID)
}

// search looks for the field inside one line span. The bool result is
// false only when no usable value exists in the span at all.
func (e *Engine) search(layout *Layout, f *catalog.FieldDefinition, span Span, method string) (domain.ExtractedField, bool) {
	occurrences := e.findLabels(layout, f, span)
	if len(occurrences) == 0 {
		return domain.ExtractedField{}, false
	}

	var winner *capture
	winnerMethod := method
	var loose *capture
	looseMethod := method
	strictCount := 0

	// Forward pass: value after the label, same line then next non-empty
	// line. The first shape-satisfying capture wins; later ones only
	// raise the ambiguity count.
	for _, occ := range occurrences {
		c, ok := e.forwardCapture(layout, f, span, occ)
		if !ok {
			continue
		}
		if c.strict {
			strictCount++
			if winner == nil {
				winner = &c
			}
		} else if loose == nil {
			loose = &c
		}
	}

	// Bidirectional fallback: some layouts print the value before its
	// label. Only consulted when the forward pass found nothing strict.
	if winner == nil {
		for _, occ := range occurrences {
			c, ok := e.backwardCapture(layout, f, span, occ)
			if !ok {
				continue
			}
			if c.strict {
				strictCount++
				if winner == nil {
					winner = &c
					winnerMethod = domain.MethodBidirectional
				}
			} else if loose == nil {
				loose = &c
				looseMethod = domain.MethodBidirectional
			}
		}
	}

	if winner == nil {
		if loose == nil {
			return domain.ExtractedField{}, false
		}
		winner = loose
		winnerMethod = looseMethod
	}

	normalized, corrected := Normalize(winner.value, f.Kind)
	raw := winner.value
	loc := winner.loc
	return domain.ExtractedField{
		FieldID:    f.ID,
		Raw:        &raw,
		Normalized: normalized,
		Location:   &loc,
		Method:     winnerMethod,
		Confidence: confidence.Score(confidence.Signals{
			Method:     winnerMethod,
			Strict:     winner.strict,
			Corrected:  corrected,
			Candidates: strictCount,
		}),
	}, true
}

// occurrence is one label hit: the line index plus the matched byte range
type occurrence struct {
	line  int
	start int
	end   int
}

func (e *Engine) findLabels(layout *Layout, f *catalog.FieldDefinition, span Span) []occurrence {
	var occs []occurrence
	for i := span.Start; i < span.End; i++ {
		for _, re := range e.labels[f.ID] {
			if m := re.FindStringIndex(layout.Lines[i].Text); m != nil {
				occs = append(occs, occurrence{line: i, start: m[0], end: m[1]})
				break
			}
		}
	}
	return occs
}

// forwardCapture takes the remainder of the labelled line, or the next
// non-empty line when the remainder is blank or a placeholder
func (e *Engine) forwardCapture(layout *Layout, f *catalog.FieldDefinition, span Span, occ occurrence) (capture, bool) {
	line := layout.Lines[occ.line]
	rest := cleanValue(line.Text[occ.end:])
	if !isPlaceholder(rest) {
		return capture{
			value:  rest,
			loc:    domain.Location{Page: line.Page, Line: line.Num},
			strict: f.MatchesShape(rest),
		}, true
	}

	for i := occ.line + 1; i < span.End; i++ {
		next := layout.Lines[i]
		value := cleanValue(next.Text)
		if isPlaceholder(value) {
			if strings.TrimSpace(next.Text) == "" {
				continue
			}
			return capture{}, false
		}
		// A line that starts another label belongs to that field
		if e.anyLabelAt(next.Text) {
			return capture{}, false
		}
		return capture{
			value:  value,
			loc:    domain.Location{Page: next.Page, Line: next.Num},
			strict: f.MatchesShape(value),
		}, true
	}
	return capture{}, false
}

// backwardCapture looks before the label: the prefix of the labelled
// line, or the previous non-empty line
func (e *Engine) backwardCapture(layout *Layout, f *catalog.FieldDefinition, span Span, occ occurrence) (capture, bool) {
	line := layout.Lines[occ.line]
	prefix := cleanValue(line.Text[:occ.start])
	if !isPlaceholder(prefix) {
		return capture{
			value:  prefix,
			loc:    domain.Location{Page: line.Page, Line: line.Num},
			strict: f.MatchesShape(prefix),
		}, true
	}

	for i := occ.line - 1; i >= span.Start; i-- {
		prev := layout.Lines[i]
		value := cleanValue(prev.Text)
		if isPlaceholder(value) {
			if strings.TrimSpace(prev.Text) == "" {
				continue
			}
			return capture{}, false
		}
		if e.anyLabelAt(prev.Text) {
			return capture{}, false
		}
		return capture{
			value:  value,
			loc:    domain.Location{Page: prev.Page, Line: prev.Num},
			strict: f.MatchesShape(value),
		}, true
	}
	return capture{}, false
}

// anyLabelAt reports whether the line opens with any declared field label
func (e *Engine) anyLabelAt(text string) bool {
	trimmed := strings.TrimSpace(text)
	for _, patterns := range e.labels {
		for _, re := range patterns {
			if m := re.FindStringIndex(trimmed); m != nil && m[0] == 0 {
				return true
			}
		}
	}
	return false
}

// cleanValue strips separator punctuation left over after removing the
// label, then collapses whitespace
func cleanValue(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimLeft(s, ":-")
	s = strings.TrimRight(s, ":")
	return strings.Join(strings.Fields(s), " ")
}
