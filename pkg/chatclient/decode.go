// Copyright (C) 2026 ChatMate Labs (oss@chatmate.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package chatclient

import "unicode/utf8"

// runeDecoder turns arbitrary byte slices into valid UTF-8 strings,
// holding back the trailing bytes of a rune that was split across
// network reads until its continuation arrives.
type runeDecoder struct {
	pending []byte
}

// Decode appends p to any held-back bytes and returns the longest
// prefix that is complete UTF-8. The remainder is kept for the next
// call.
func (d *runeDecoder) Decode(p []byte) string {
	if len(d.pending) > 0 {
		p = append(d.pending, p...)
		d.pending = nil
	}

	cut := len(p)
	for cut > 0 {
		r, size := utf8.DecodeLastRune(p[:cut])
		if r != utf8.RuneError || size > 1 {
			break
		}
		// A lone RuneError of size 1 at the tail may be a split rune.
		// Hold back at most utf8.UTFMax-1 bytes; anything older is
		// genuinely invalid and passes through as-is.
		if len(p)-cut >= utf8.UTFMax-1 {
			break
		}
		cut--
	}

	if cut < len(p) {
		d.pending = append(d.pending, p[cut:]...)
	}
	return string(p[:cut])
}

// Flush returns any bytes still held back. Called at end of stream so
// a truncated rune is surfaced rather than silently dropped.
func (d *runeDecoder) Flush() string {
	if len(d.pending) == 0 {
		return ""
	}
	out := string(d.pending)
	d.pending = nil
	return out
}
