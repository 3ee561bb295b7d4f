package core

// streaming.go provides streaming readers for CSV sources.
//
// Sources are decoded on the fly without loading the file into memory:
//
//   - a UTF-8 BOM, when present, switches decoding to UTF-8 and is dropped
//   - otherwise the configured source encoding applies (latin1 by default,
//     which is what the upstream exports use)
//   - invalid UTF-8 in utf-8 sources becomes U+FFFD
//
// Use WrapForStreaming to apply all transforms in the correct order.

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Supported source encodings.
const (
	EncodingLatin1 = "latin1"
	EncodingUTF8   = "utf-8"
)

// LookupEncoding returns the decoder family for a source encoding name.
func LookupEncoding(name string) (encoding.Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", EncodingLatin1, "iso-8859-1", "latin-1":
		return charmap.ISO8859_1, nil
	case EncodingUTF8, "utf8":
		return unicode.UTF8, nil
	default:
		return nil, fmt.Errorf("unsupported source encoding %q (use %s or %s)", name, EncodingLatin1, EncodingUTF8)
	}
}

// StreamingCountingReader wraps an io.Reader to track bytes read.
// Used to report how much of a source was consumed.
type StreamingCountingReader struct {
	reader    io.Reader
	BytesRead int64
	Total     int64 // If known (0 if unknown)
}

// NewStreamingCountingReader creates a counting reader with optional total size.
func NewStreamingCountingReader(r io.Reader, total int64) *StreamingCountingReader {
	return &StreamingCountingReader{
		reader: r,
		Total:  total,
	}
}

// Read implements io.Reader.
func (r *StreamingCountingReader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	r.BytesRead += int64(n)
	return n, err
}

// Progress returns the read progress as a percentage (0-100).
// Returns 0 if total is unknown.
func (r *StreamingCountingReader) Progress() int {
	if r.Total <= 0 {
		return 0
	}
	return int(r.BytesRead * 100 / r.Total)
}

// WrapForStreaming wraps a reader with byte counting and decoding to UTF-8.
//
// The order matters:
// 1. Counting sits on the raw bytes so BytesRead matches the file size
// 2. BOM detection happens before the fallback decoder sees any byte
func WrapForStreaming(r io.Reader, totalSize int64, enc encoding.Encoding) (io.Reader, *StreamingCountingReader) {
	counter := NewStreamingCountingReader(r, totalSize)
	decoder := unicode.BOMOverride(enc.NewDecoder())
	return transform.NewReader(counter, decoder), counter
}
