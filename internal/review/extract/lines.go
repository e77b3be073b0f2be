package extract

import (
	"strings"

	"github.com/credflow/credflow-backend/internal/review/domain"
)

// Line is one line of page text with its position in the document
type Line struct {
	Page int
	Num  int
	Text string
}

// Span is a half-open line range [Start, End) into the flattened line list
type Span struct {
	Start int
	End   int
}

// Layout is the flattened, indexed view of a document built once before
// any field extraction begins. The extraction phase only reads it.
type Layout struct {
	Lines    []Line
	sections map[string]Span
}

// Section returns the line span of a recognized section, if present
func (l *Layout) Section(name string) (Span, bool) {
	s, ok := l.sections[normalizeKey(name)]
	return s, ok
}

// Full returns the span covering the whole document
func (l *Layout) Full() Span {
	return Span{Start: 0, End: len(l.Lines)}
}

// BuildLayout flattens pages into the line model and precomputes the
// section index. A line is recognized as a section header when its text
// matches one of the known section names, or when the page's layout hints
// mark its offset as a header line. Each section runs from its header to
// the next recognized header or document end.
func BuildLayout(pages []domain.Page, sectionNames []string) *Layout {
	layout := &Layout{sections: make(map[string]Span)}

	known := make(map[string]string, len(sectionNames))
	for _, name := range sectionNames {
		known[normalizeKey(name)] = name
	}

	hinted := make(map[[2]int]bool)
	for _, page := range pages {
		for _, offset := range page.SectionOffsets {
			hinted[[2]int{page.Index, offset}] = true
		}
	}

	for _, page := range pages {
		for num, text := range strings.Split(page.Text, "\n") {
			layout.Lines = append(layout.Lines, Line{Page: page.Index, Num: num, Text: text})
		}
	}

	// Walk once collecting header positions, named or not. Unnamed hinted
	// headers still terminate the preceding section.
	type header struct {
		line int
		name string
	}
	var headers []header
	for i, line := range layout.Lines {
		key := normalizeKey(line.Text)
		if key == "" {
			continue
		}
		if _, ok := known[key]; ok {
			headers = append(headers, header{line: i, name: key})
			continue
		}
		if hinted[[2]int{line.Page, line.Num}] {
			name := ""
			for sectionKey := range known {
				if strings.HasPrefix(key, sectionKey) {
					name = sectionKey
					break
				}
			}
			headers = append(headers, header{line: i, name: name})
		}
	}

	for i, h := range headers {
		if h.name == "" {
			continue
		}
		if _, seen := layout.sections[h.name]; seen {
			continue
		}
		end := len(layout.Lines)
		if i+1 < len(headers) {
			end = headers[i+1].line
		}
		layout.sections[h.name] = Span{Start: h.line, End: end}
	}

	return layout
}

// normalizeKey lowercases and collapses whitespace for case-insensitive
// label and section matching
func normalizeKey(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
