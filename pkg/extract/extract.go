// Copyright (C) 2026 ChatMate Labs (oss@chatmate.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package extract reduces uploaded documents to plain text so the chat
// relay can feed them to the model as extracted-text attachments.
package extract

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Extractor converts one document type to plain text.
type Extractor interface {
	// Supports reports whether the extractor handles the given MIME type.
	Supports(mimeType string) bool

	// Extract reads the whole document and returns its text content.
	Extract(r io.Reader) (string, error)
}

// PDFExtractor implements Extractor for application/pdf.
type PDFExtractor struct{}

func (PDFExtractor) Supports(mimeType string) bool {
	return strings.EqualFold(mimeType, "application/pdf")
}

func (PDFExtractor) Extract(r io.Reader) (string, error) {
	buf, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read pdf: %w", err)
	}

	rdr, err := pdf.NewReader(bytes.NewReader(buf), int64(len(buf)))
	if err != nil {
		return "", fmt.Errorf("parse pdf: %w", err)
	}

	n := rdr.NumPage()
	pages := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		pg := rdr.Page(i)

		txt, err := pg.GetPlainText(nil)
		if err != nil {
			// Image-only or malformed page, skip it.
			continue
		}
		s := strings.TrimSpace(txt)
		if s == "" {
			continue
		}
		pages = append(pages, s)
	}

	return strings.Join(pages, "\n\n"), nil
}

// PlainTextExtractor implements Extractor for text/* documents.
type PlainTextExtractor struct{}

func (PlainTextExtractor) Supports(mimeType string) bool {
	return strings.HasPrefix(strings.ToLower(mimeType), "text/")
}

func (PlainTextExtractor) Extract(r io.Reader) (string, error) {
	buf, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read text: %w", err)
	}
	return string(buf), nil
}

// defaultExtractors is the lookup order for For.
var defaultExtractors = []Extractor{
	PDFExtractor{},
	PlainTextExtractor{},
}

// For returns the extractor responsible for the given MIME type, or nil
// when the type is not supported.
func For(mimeType string) Extractor {
	for _, e := range defaultExtractors {
		if e.Supports(mimeType) {
			return e
		}
	}
	return nil
}
