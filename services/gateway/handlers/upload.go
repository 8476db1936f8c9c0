// Copyright (C) 2026 ChatMate Labs (oss@chatmate.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"encoding/base64"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/chatmate-ai/chatmate/pkg/extract"
	"github.com/chatmate-ai/chatmate/services/gateway/observability"
)

// maxUploadBytes bounds multipart uploads (16MB).
const maxUploadBytes = 16 << 20

// base64PreviewLen is how many base64 characters the upload echo returns.
const base64PreviewLen = 200

// HandlePDFText processes POST /v1/chat/pdf-text requests.
//
// # Description
//
// Accepts a multipart form with a "file" field and responds with the
// extracted plain text. The extractor is chosen by the part's declared
// Content-Type; parts without a specific type are treated as PDF, the
// endpoint's primary payload. Clients call this before sending a chat
// turn so the relay receives pre-extracted text instead of raw document
// bytes.
//
// # Outputs
//
//   - 200: {"text": "..."}
//   - 400: No file uploaded / file too large / unsupported file type
//   - 500: Extraction failed
func HandlePDFText(c *gin.Context) {
	endpoint := observability.EndpointPDFText

	fileHeader, err := c.FormFile("file")
	if err != nil {
		if m := observability.DefaultMetrics; m != nil {
			m.RecordError(endpoint, observability.ErrorCodeValidation)
			m.RecordRequest(endpoint, false)
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file uploaded"})
		return
	}
	if fileHeader.Size > maxUploadBytes {
		if m := observability.DefaultMetrics; m != nil {
			m.RecordError(endpoint, observability.ErrorCodeValidation)
			m.RecordRequest(endpoint, false)
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "File too large"})
		return
	}

	contentType := fileHeader.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = "application/pdf"
	}
	extractor := extract.For(contentType)
	if extractor == nil {
		if m := observability.DefaultMetrics; m != nil {
			m.RecordError(endpoint, observability.ErrorCodeValidation)
			m.RecordRequest(endpoint, false)
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unsupported file type"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		slog.Error("Failed to open uploaded file", "name", fileHeader.Filename, "error", err)
		if m := observability.DefaultMetrics; m != nil {
			m.RecordError(endpoint, observability.ErrorCodeInternal)
			m.RecordRequest(endpoint, false)
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read upload"})
		return
	}
	defer func() {
		if err := file.Close(); err != nil {
			slog.Debug("failed to close uploaded file", "error", err)
		}
	}()

	text, err := extractor.Extract(file)
	if err != nil {
		slog.Error("PDF text extraction failed", "name", fileHeader.Filename, "error", err)
		if m := observability.DefaultMetrics; m != nil {
			m.RecordError(endpoint, observability.ErrorCodeExtraction)
			m.RecordRequest(endpoint, false)
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to extract text"})
		return
	}

	if m := observability.DefaultMetrics; m != nil {
		m.RecordRequest(endpoint, true)
	}
	c.JSON(http.StatusOK, gin.H{"text": text})
}

// HandleUpload processes POST /v1/upload requests.
//
// # Description
//
// Accepts a multipart form with a "file" field and echoes back metadata
// plus a short base64 preview of the content. Useful for client-side
// debugging of attachment handling; nothing is persisted.
//
// # Outputs
//
//   - 200: {"name": ..., "type": ..., "size": ..., "base64": "..."}
//   - 400: No file uploaded
//   - 500: Upload failed
func HandleUpload(c *gin.Context) {
	endpoint := observability.EndpointUpload

	fileHeader, err := c.FormFile("file")
	if err != nil {
		if m := observability.DefaultMetrics; m != nil {
			m.RecordError(endpoint, observability.ErrorCodeValidation)
			m.RecordRequest(endpoint, false)
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file uploaded"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		slog.Error("Failed to open uploaded file", "name", fileHeader.Filename, "error", err)
		if m := observability.DefaultMetrics; m != nil {
			m.RecordError(endpoint, observability.ErrorCodeInternal)
			m.RecordRequest(endpoint, false)
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Upload failed"})
		return
	}
	defer func() {
		if err := file.Close(); err != nil {
			slog.Debug("failed to close uploaded file", "error", err)
		}
	}()

	content, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		slog.Error("Failed to read uploaded file", "name", fileHeader.Filename, "error", err)
		if m := observability.DefaultMetrics; m != nil {
			m.RecordError(endpoint, observability.ErrorCodeInternal)
			m.RecordRequest(endpoint, false)
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Upload failed"})
		return
	}

	encoded := base64.StdEncoding.EncodeToString(content)
	preview := encoded
	if len(preview) > base64PreviewLen {
		preview = preview[:base64PreviewLen] + "..."
	}

	if m := observability.DefaultMetrics; m != nil {
		m.RecordRequest(endpoint, true)
	}
	c.JSON(http.StatusOK, gin.H{
		"name":   fileHeader.Filename,
		"type":   fileHeader.Header.Get("Content-Type"),
		"size":   fileHeader.Size,
		"base64": preview,
	})
}

// HealthCheck responds to GET /health liveness probes.
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
