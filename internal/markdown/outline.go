// Package markdown extracts titles and section outlines from knowledge documents.
package markdown

import (
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"go.abhg.dev/goldmark/toc"
)

// Outline describes the structure of one source document, used for source
// listings and citation display.
type Outline struct {
	Title    string   // first top-level heading, or "" when the document has none
	Sections []string // heading paths, e.g. "Warmup > Dynamic Stretches"
}

// Inspector parses markdown and reports document structure.
type Inspector struct {
	parser goldmark.Markdown
}

// NewInspector creates an Inspector with a configured goldmark parser.
func NewInspector() *Inspector {
	md := goldmark.New(
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
	)
	return &Inspector{parser: md}
}

// Inspect returns the document's title and H1/H2 section outline. A document
// without headings yields an empty outline, not an error.
func (i *Inspector) Inspect(source []byte) (*Outline, error) {
	reader := text.NewReader(source)
	doc := i.parser.Parser().Parse(reader)

	tree, err := toc.Inspect(doc, source,
		toc.MinDepth(1),
		toc.MaxDepth(2),
		toc.Compact(true),
	)
	if err != nil {
		return nil, fmt.Errorf("inspect TOC: %w", err)
	}

	outline := &Outline{}
	if len(tree.Items) > 0 {
		outline.Title = string(tree.Items[0].Title)
	}
	collectSections(tree.Items, nil, &outline.Sections)
	return outline, nil
}

// collectSections flattens the TOC tree into "parent > child" paths.
func collectSections(items toc.Items, ancestors []string, out *[]string) {
	for _, item := range items {
		path := append(ancestors, string(item.Title))
		*out = append(*out, strings.Join(path, " > "))
		if len(item.Items) > 0 {
			collectSections(item.Items, path, out)
		}
	}
}
