package docparse

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/goliatone/go-rights/rights"
	"github.com/ledongthuc/pdf"
)

// DefaultMaxBytes guards in-memory parsing of uploaded documents.
const DefaultMaxBytes int64 = 16 * 1024 * 1024

// Source types reported on parsed documents.
const (
	SourcePDF  = "pdf"
	SourceDOCX = "docx"
	SourceText = "text"
)

// Parser extracts plain text from PDF, DOCX, and plain text uploads.
type Parser struct {
	MaxBytes int64
}

// Parse sniffs the document format and extracts its text content.
func (p Parser) Parse(ctx context.Context, filename string, content []byte) (rights.Document, error) {
	if err := ctx.Err(); err != nil {
		return rights.Document{}, err
	}
	if len(content) == 0 {
		return rights.Document{}, rights.NewError(rights.KindValidation, "document is empty", nil)
	}
	maxBytes := p.MaxBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	if int64(len(content)) > maxBytes {
		return rights.Document{}, rights.NewError(rights.KindValidation,
			fmt.Sprintf("document exceeds %d bytes", maxBytes), nil)
	}

	sourceType := sniffType(filename, content)

	var text string
	var err error
	switch sourceType {
	case SourcePDF:
		text, err = extractPDF(content)
	case SourceDOCX:
		text, err = extractDOCX(content)
	case SourceText:
		text, err = extractText(content)
	}
	if err != nil {
		return rights.Document{}, err
	}

	return rights.Document{
		Filename:   filename,
		SourceType: sourceType,
		Text:       strings.TrimSpace(text),
	}, nil
}

func sniffType(filename string, content []byte) string {
	if bytes.HasPrefix(content, []byte("%PDF-")) {
		return SourcePDF
	}
	if bytes.HasPrefix(content, []byte("PK\x03\x04")) {
		return SourceDOCX
	}
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return SourcePDF
	case ".docx":
		return SourceDOCX
	default:
		return SourceText
	}
}

// extractPDF recovers from parser panics since the pdf library panics on
// some malformed inputs instead of returning an error.
func extractPDF(content []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = rights.NewError(rights.KindValidation, fmt.Sprintf("malformed pdf: %v", r), nil)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", rights.NewError(rights.KindValidation, "unable to read pdf", err)
	}

	plain, err := reader.GetPlainText()
	if err != nil {
		return "", rights.NewError(rights.KindValidation, "unable to extract pdf text", err)
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(plain); err != nil {
		return "", rights.NewError(rights.KindValidation, "unable to extract pdf text", err)
	}
	return buf.String(), nil
}

func extractDOCX(content []byte) (string, error) {
	archive, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", rights.NewError(rights.KindValidation, "unable to read docx archive", err)
	}

	var document *zip.File
	for _, file := range archive.File {
		if file.Name == "word/document.xml" {
			document = file
			break
		}
	}
	if document == nil {
		return "", rights.NewError(rights.KindValidation, "docx missing word/document.xml", nil)
	}

	rc, err := document.Open()
	if err != nil {
		return "", rights.NewError(rights.KindValidation, "unable to open docx document", err)
	}
	defer rc.Close()

	return decodeWordXML(rc)
}

// decodeWordXML walks the WordprocessingML token stream collecting text
// runs, inserting newlines at paragraph boundaries and tabs for w:tab.
func decodeWordXML(r io.Reader) (string, error) {
	decoder := xml.NewDecoder(r)
	var builder strings.Builder
	inText := false

	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", rights.NewError(rights.KindValidation, "malformed docx document xml", err)
		}

		switch tok := token.(type) {
		case xml.StartElement:
			switch tok.Name.Local {
			case "t":
				inText = true
			case "tab":
				builder.WriteByte('\t')
			case "br":
				builder.WriteByte('\n')
			}
		case xml.EndElement:
			switch tok.Name.Local {
			case "t":
				inText = false
			case "p":
				builder.WriteByte('\n')
			}
		case xml.CharData:
			if inText {
				builder.Write(tok)
			}
		}
	}
	return builder.String(), nil
}

func extractText(content []byte) (string, error) {
	if !utf8.Valid(content) {
		return "", rights.NewError(rights.KindValidation, "document is not valid utf-8 text", nil)
	}
	return string(content), nil
}
