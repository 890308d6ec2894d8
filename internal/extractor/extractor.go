// Package extractor converts uploaded document bytes into plain text.
package extractor

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
)

// Format is a supported document type.
type Format string

const (
	FormatPDF  Format = "pdf"
	FormatDOCX Format = "docx"
	FormatTXT  Format = "txt"
)

// FormatFromFilename maps a filename suffix to its Format. The match is
// case-sensitive, so "report.PDF" is rejected.
func FormatFromFilename(filename string) (Format, error) {
	switch {
	case strings.HasSuffix(filename, ".pdf"):
		return FormatPDF, nil
	case strings.HasSuffix(filename, ".docx"):
		return FormatDOCX, nil
	case strings.HasSuffix(filename, ".txt"):
		return FormatTXT, nil
	default:
		return "", &UnsupportedFormatError{Filename: filename}
	}
}

// Extract converts document bytes of the given format into plain text.
// It has no side effects; malformed input yields an ExtractionError.
func Extract(data []byte, format Format) (string, error) {
	switch format {
	case FormatPDF:
		return extractPDF(data)
	case FormatDOCX:
		return extractDOCX(data)
	case FormatTXT:
		return extractTXT(data)
	default:
		return "", &UnsupportedFormatError{Filename: string(format)}
	}
}

func extractPDF(data []byte) (text string, err error) {
	// The pdf package panics on some malformed inputs instead of
	// returning an error.
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = &ExtractionError{Format: FormatPDF, Err: fmt.Errorf("%v", r)}
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", &ExtractionError{Format: FormatPDF, Err: err}
	}

	var sb strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return "", &ExtractionError{Format: FormatPDF, Err: err}
		}
		sb.WriteString(pageText)
	}
	return sb.String(), nil
}

func extractDOCX(data []byte) (string, error) {
	r, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", &ExtractionError{Format: FormatDOCX, Err: err}
	}
	defer r.Close()

	// GetContent returns the raw word/document.xml markup; paragraph text
	// lives in <w:t> runs grouped under <w:p> elements.
	return strings.Join(paragraphsFromDocumentXML(r.Editable().GetContent()), "\n"), nil
}

func extractTXT(data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", &ExtractionError{Format: FormatTXT, Err: errors.New("content is not valid UTF-8")}
	}
	return string(data), nil
}

var xmlEntities = strings.NewReplacer(
	"&amp;", "&",
	"&lt;", "<",
	"&gt;", ">",
	"&quot;", `"`,
	"&apos;", "'",
)

// paragraphsFromDocumentXML collects the text runs of each <w:p> element,
// in document order.
func paragraphsFromDocumentXML(content string) []string {
	var paragraphs []string
	for _, block := range strings.Split(content, "</w:p>") {
		var sb strings.Builder
		rest := block
		for {
			start := strings.Index(rest, "<w:t")
			if start < 0 {
				break
			}
			rest = rest[start+len("<w:t"):]
			// "<w:t" also prefixes <w:tbl>, <w:tc> and friends; a real
			// text run is followed by '>' or an attribute.
			if rest == "" {
				break
			}
			if rest[0] != '>' && rest[0] != ' ' {
				continue
			}
			open := strings.Index(rest, ">")
			if open < 0 {
				break
			}
			rest = rest[open+1:]
			end := strings.Index(rest, "</w:t>")
			if end < 0 {
				break
			}
			sb.WriteString(xmlEntities.Replace(rest[:end]))
			rest = rest[end+len("</w:t>"):]
		}
		if sb.Len() > 0 {
			paragraphs = append(paragraphs, sb.String())
		}
	}
	return paragraphs
}
