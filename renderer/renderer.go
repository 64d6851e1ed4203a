// Package renderer renders finance statistics as markdown documents.
package renderer

import (
	"embed"
	"fmt"
	"io/fs"
	"strings"
	"text/template"
)

//go:embed templates/*.md
var templateFS embed.FS

// templates holds the markdown templates, at the root.
var templates = mustSub(templateFS, "templates")

func mustSub(fsys fs.FS, dir string) fs.FS {
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		panic(err)
	}
	return sub
}

// Alignment is the markdown alignment marker of a table column.
type Alignment string

const (
	AlignLeft  Alignment = ":---"
	AlignRight Alignment = "---:"
)

// Table is a markdown table with an optional title.
type Table struct {
	Title  string
	Header []string
	Align  []Alignment
	Rows   [][]string
}

// row appends a row to the table.
func (t *Table) row(cells ...string) { t.Rows = append(t.Rows, cells) }

// Document is a markdown document made of tables.
type Document struct {
	Title    string
	Subtitle string
	Tables   []*Table
}

func (d *Document) table(title string, header ...string) *Table {
	t := &Table{Title: title, Header: header}
	for i := range header {
		if i == 0 {
			t.Align = append(t.Align, AlignLeft)
		} else {
			t.Align = append(t.Align, AlignRight)
		}
	}
	d.Tables = append(d.Tables, t)
	return t
}

// Render renders a document to markdown.
func Render(d *Document) (string, error) {
	partials := map[string]string{
		"report_table": "report_table.md",
	}
	return renderTemplate("report", "report.md", partials, d)
}

var funcs = template.FuncMap{
	// cell escapes the pipes of a table cell.
	"cell": func(s string) string { return strings.ReplaceAll(s, "|", `\|`) },
}

// renderTemplate is a generic utility to render a main template that depends on several partials.
func renderTemplate(templateName, mainFile string, partials map[string]string, data any) (string, error) {
	mainContent, err := fs.ReadFile(templates, mainFile)
	if err != nil {
		return "", fmt.Errorf("error reading main template %q: %w", mainFile, err)
	}

	tmpl, err := template.New(templateName).Funcs(funcs).Parse(string(mainContent))
	if err != nil {
		return "", fmt.Errorf("error parsing main template %q: %w", mainFile, err)
	}

	for name, file := range partials {
		content, err := fs.ReadFile(templates, file)
		if err != nil {
			return "", fmt.Errorf("error reading partial template %q: %w", file, err)
		}
		if _, err := tmpl.New(name).Parse(string(content)); err != nil {
			return "", fmt.Errorf("error parsing partial template %q for %q: %w", file, name, err)
		}
	}

	var b strings.Builder
	if err := tmpl.ExecuteTemplate(&b, templateName, data); err != nil {
		return "", fmt.Errorf("error executing template %q: %w", templateName, err)
	}
	return b.String(), nil
}
