package core

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

func TestWrapForStreaming(t *testing.T) {
	tests := []struct {
		name     string
		input    []byte
		encoding string
		expected string
	}{
		{
			name:     "latin1 accented bytes",
			input:    []byte{'c', 'a', 'f', 0xE9},
			encoding: EncodingLatin1,
			expected: "café",
		},
		{
			name:     "BOM overrides latin1",
			input:    append([]byte{0xEF, 0xBB, 0xBF}, []byte("café")...),
			encoding: EncodingLatin1,
			expected: "café",
		},
		{
			name:     "utf-8 without BOM",
			input:    []byte("região"),
			encoding: EncodingUTF8,
			expected: "região",
		},
		{
			name:     "utf-8 BOM dropped",
			input:    append([]byte{0xEF, 0xBB, 0xBF}, []byte("hello,world")...),
			encoding: EncodingUTF8,
			expected: "hello,world",
		},
		{
			name:     "invalid utf-8 replaced",
			input:    []byte{'a', 0xFF, 'b'},
			encoding: EncodingUTF8,
			expected: "a�b",
		},
		{
			name:     "empty",
			input:    []byte{},
			encoding: EncodingLatin1,
			expected: "",
		},
		{
			name:     "only BOM",
			input:    []byte{0xEF, 0xBB, 0xBF},
			encoding: EncodingLatin1,
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enc, err := LookupEncoding(tt.encoding)
			if err != nil {
				t.Fatalf("LookupEncoding(%q): %v", tt.encoding, err)
			}
			reader, counter := WrapForStreaming(bytes.NewReader(tt.input), int64(len(tt.input)), enc)
			result, err := io.ReadAll(reader)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if string(result) != tt.expected {
				t.Errorf("got %q, want %q", string(result), tt.expected)
			}
			if counter.BytesRead != int64(len(tt.input)) {
				t.Errorf("BytesRead = %d, want %d", counter.BytesRead, len(tt.input))
			}
		})
	}
}

func TestLookupEncoding(t *testing.T) {
	for _, name := range []string{"", "latin1", "LATIN1", "iso-8859-1", "latin-1"} {
		enc, err := LookupEncoding(name)
		if err != nil || enc != charmap.ISO8859_1 {
			t.Errorf("LookupEncoding(%q) = %v, %v; want ISO8859_1", name, enc, err)
		}
	}
	for _, name := range []string{"utf-8", "UTF8", " utf-8 "} {
		enc, err := LookupEncoding(name)
		if err != nil || enc != unicode.UTF8 {
			t.Errorf("LookupEncoding(%q) = %v, %v; want UTF8", name, enc, err)
		}
	}
	if _, err := LookupEncoding("cp1252"); err == nil {
		t.Error("expected error for unsupported encoding")
	}
}

func TestStreamingCountingReader(t *testing.T) {
	data := "hello world this is a test"
	reader := NewStreamingCountingReader(strings.NewReader(data), int64(len(data)))

	buf := make([]byte, 5)
	n, _ := reader.Read(buf)
	if reader.BytesRead != int64(n) {
		t.Errorf("BytesRead = %d, want %d", reader.BytesRead, n)
	}

	_, _ = io.ReadAll(reader)
	if reader.BytesRead != int64(len(data)) {
		t.Errorf("BytesRead = %d, want %d", reader.BytesRead, len(data))
	}
	if reader.Progress() != 100 {
		t.Errorf("Progress() = %d, want 100", reader.Progress())
	}
}

func TestStreamingCountingReader_UnknownTotal(t *testing.T) {
	reader := NewStreamingCountingReader(strings.NewReader("abc"), 0)
	_, _ = io.ReadAll(reader)
	if reader.Progress() != 0 {
		t.Errorf("Progress() = %d, want 0 when total unknown", reader.Progress())
	}
}
