package entities

import "strings"

// SourceDocument is the page-ordered output of PDF extraction for one case report.
type SourceDocument struct {
	PDFName string       `json:"pdf_name"`
	PDFPath string       `json:"pdf_path"`
	Pages   []SourcePage `json:"pages"`
}

// SourcePage holds the text and image references of one PDF page.
type SourcePage struct {
	PageNumber int        `json:"page_number"`
	Text       string     `json:"text"`
	Images     []ImageRef `json:"image"`
}

// ImageRef points at an image extracted from a page.
type ImageRef struct {
	Filename string `json:"filename"`
	Path     string `json:"path"`
	Page     int    `json:"page"`
}

// HasText reports whether the page carries any non-whitespace text.
func (p SourcePage) HasText() bool {
	return strings.TrimSpace(p.Text) != ""
}
