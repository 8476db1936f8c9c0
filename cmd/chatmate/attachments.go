// Copyright (C) 2026 ChatMate Labs (oss@chatmate.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chatmate-ai/chatmate/pkg/chatclient"
)

const maxAttachmentBytes = 16 << 20

var imageMIMETypes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".webp": "image/webp",
}

var textExtensions = map[string]bool{
	".txt":  true,
	".md":   true,
	".csv":  true,
	".json": true,
	".yaml": true,
	".yml":  true,
	".log":  true,
}

// LoadAttachment reads a file and converts it to the wire form the
// gateway expects: images become base64 data URLs, PDFs go through the
// gateway's extraction endpoint, and text files are sent verbatim.
func LoadAttachment(path, gatewayURL string) (*chatclient.Attachment, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.Size() > maxAttachmentBytes {
		return nil, fmt.Errorf("file exceeds %d MB limit", maxAttachmentBytes>>20)
	}

	name := filepath.Base(path)
	ext := strings.ToLower(filepath.Ext(path))

	if mimeType, ok := imageMIMETypes[ext]; ok {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		return &chatclient.Attachment{
			ImageDataURL: fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(data)),
			Name:         name,
			Type:         mimeType,
		}, nil
	}

	if ext == ".pdf" {
		text, err := extractPDFText(path, gatewayURL)
		if err != nil {
			return nil, err
		}
		return &chatclient.Attachment{
			Text: text,
			Name: name,
			Type: "application/pdf",
		}, nil
	}

	if textExtensions[ext] {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		return &chatclient.Attachment{
			Text: string(data),
			Name: name,
			Type: "text/plain",
		}, nil
	}

	return nil, fmt.Errorf("unsupported file type %q", ext)
}

// extractPDFText ships the PDF to the gateway, which owns the parser.
func extractPDFText(path, gatewayURL string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(part, file); err != nil {
		return "", err
	}
	if err := writer.Close(); err != nil {
		return "", err
	}

	client := &http.Client{Timeout: 30 * time.Second}
	url := strings.TrimRight(gatewayURL, "/") + "/v1/chat/pdf-text"
	resp, err := client.Post(url, writer.FormDataContentType(), &body)
	if err != nil {
		return "", fmt.Errorf("pdf extraction request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxAttachmentBytes))
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("pdf extraction failed (%d): %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var payload struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return "", fmt.Errorf("unexpected extraction response: %w", err)
	}
	return payload.Text, nil
}
