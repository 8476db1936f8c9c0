// Copyright (C) 2026 ChatMate Labs (oss@chatmate.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatypes

import (
	"fmt"
	"strings"
)

// AttachmentKind is the closed set of attachment variants a chat turn can
// carry. Classification happens exactly once, at the gateway boundary, so
// downstream code switches on the kind instead of re-inspecting MIME types.
type AttachmentKind int

const (
	// AttachmentNone means the turn has no attachment.
	AttachmentNone AttachmentKind = iota

	// AttachmentImage is an inline image delivered as a data: URL,
	// forwarded to vision-capable models as an image part.
	AttachmentImage

	// AttachmentText is a document reduced to extracted text (PDF, plain
	// text), appended to the user message content.
	AttachmentText
)

// String returns the kind name for logging.
func (k AttachmentKind) String() string {
	switch k {
	case AttachmentNone:
		return "none"
	case AttachmentImage:
		return "image"
	case AttachmentText:
		return "text"
	default:
		return fmt.Sprintf("AttachmentKind(%d)", int(k))
	}
}

// Attachment is the classified attachment payload of one chat turn.
//
// Exactly one of DataURL or Text is populated, selected by Kind.
type Attachment struct {
	Kind    AttachmentKind
	DataURL string
	Text    string
	Name    string
}

// Classify resolves the request's attachment fields into a single closed
// variant.
//
// # Description
//
// Classification rules, applied once:
//   - ImageDataURL present: the attachment is an inline image. The URL must
//     be a data: URL with an image/* media type.
//   - FileText present (and no image): the attachment is extracted text. The
//     declared FileType, when present, must not be an image type, since
//     images never arrive as extracted text.
//   - Neither present: AttachmentNone.
//
// # Outputs
//
//   - Attachment: The classified variant.
//   - error: Non-nil when the fields are inconsistent. Treated as a
//     validation failure by the handler (HTTP 400).
func (r *ChatStreamRequest) Classify() (Attachment, error) {
	if r.ImageDataURL != "" {
		if !strings.HasPrefix(r.ImageDataURL, "data:image/") {
			return Attachment{}, fmt.Errorf("imageDataUrl must be a data URL with an image media type")
		}
		if r.FileText != "" {
			return Attachment{}, fmt.Errorf("request carries both an image and extracted file text")
		}
		return Attachment{
			Kind:    AttachmentImage,
			DataURL: r.ImageDataURL,
			Name:    r.FileName,
		}, nil
	}

	if r.FileText != "" {
		if strings.HasPrefix(r.FileType, "image/") {
			return Attachment{}, fmt.Errorf("image attachments must use imageDataUrl, not fileText")
		}
		return Attachment{
			Kind: AttachmentText,
			Text: r.FileText,
			Name: r.FileName,
		}, nil
	}

	return Attachment{Kind: AttachmentNone}, nil
}
