// Copyright (C) 2026 ChatMate Labs (oss@chatmate.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempFile(t *testing.T, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, content, 0600))
	return path
}

func TestLoadAttachmentImage(t *testing.T) {
	path := writeTempFile(t, "photo.png", []byte{0x89, 0x50, 0x4E, 0x47})

	attachment, err := LoadAttachment(path, "http://unused")

	require.NoError(t, err)
	assert.Equal(t, "photo.png", attachment.Name)
	assert.Equal(t, "image/png", attachment.Type)
	assert.True(t, strings.HasPrefix(attachment.ImageDataURL, "data:image/png;base64,"))
	assert.Empty(t, attachment.Text)
}

func TestLoadAttachmentText(t *testing.T) {
	path := writeTempFile(t, "notes.md", []byte("# Notes\nhello"))

	attachment, err := LoadAttachment(path, "http://unused")

	require.NoError(t, err)
	assert.Equal(t, "# Notes\nhello", attachment.Text)
	assert.Equal(t, "text/plain", attachment.Type)
	assert.Empty(t, attachment.ImageDataURL)
}

func TestLoadAttachmentPDFUsesGateway(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/chat/pdf-text", r.URL.Path)
		_, _, err := r.FormFile("file")
		require.NoError(t, err)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"text": "extracted pdf text"}`))
	}))
	defer server.Close()

	path := writeTempFile(t, "doc.pdf", []byte("%PDF-1.4 fake"))

	attachment, err := LoadAttachment(path, server.URL)

	require.NoError(t, err)
	assert.Equal(t, "extracted pdf text", attachment.Text)
	assert.Equal(t, "application/pdf", attachment.Type)
}

func TestLoadAttachmentPDFExtractionFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error": "Failed to extract text"}`))
	}))
	defer server.Close()

	path := writeTempFile(t, "doc.pdf", []byte("not a pdf"))

	_, err := LoadAttachment(path, server.URL)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "pdf extraction failed (500)")
}

func TestLoadAttachmentUnsupportedType(t *testing.T) {
	path := writeTempFile(t, "binary.exe", []byte{0x4D, 0x5A})

	_, err := LoadAttachment(path, "http://unused")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported file type")
}

func TestLoadAttachmentMissingFile(t *testing.T) {
	_, err := LoadAttachment(filepath.Join(t.TempDir(), "absent.txt"), "http://unused")
	require.Error(t, err)
}
