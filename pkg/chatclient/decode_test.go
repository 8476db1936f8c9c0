// Copyright (C) 2026 ChatMate Labs (oss@chatmate.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package chatclient

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRuneDecoderPassesASCIIThrough(t *testing.T) {
	var d runeDecoder
	assert.Equal(t, "hello", d.Decode([]byte("hello")))
	assert.Empty(t, d.Flush())
}

func TestRuneDecoderReassemblesSplitRune(t *testing.T) {
	var d runeDecoder

	// "€" is 0xE2 0x82 0xAC, split across two reads.
	euro := []byte("€")
	first := d.Decode(euro[:2])
	second := d.Decode(euro[2:])

	assert.Empty(t, first)
	assert.Equal(t, "€", second)
}

func TestRuneDecoderSplitAcrossThreeReads(t *testing.T) {
	var d runeDecoder

	// 4-byte emoji delivered one byte at a time.
	face := []byte("😀")
	var out string
	for _, b := range face {
		out += d.Decode([]byte{b})
	}

	assert.Equal(t, "😀", out)
	assert.Empty(t, d.Flush())
}

func TestRuneDecoderHoldsTailAcrossMixedChunk(t *testing.T) {
	var d runeDecoder

	euro := []byte("€")
	chunk := append([]byte("abc"), euro[0])

	assert.Equal(t, "abc", d.Decode(chunk))
	assert.Equal(t, "€def", d.Decode(append(euro[1:], []byte("def")...)))
}

func TestRuneDecoderFlushSurfacesTruncatedRune(t *testing.T) {
	var d runeDecoder

	euro := []byte("€")
	assert.Empty(t, d.Decode(euro[:1]))
	assert.NotEmpty(t, d.Flush())
	assert.Empty(t, d.Flush())
}
