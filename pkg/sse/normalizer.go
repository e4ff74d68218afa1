// Package sse turns a server-sent-event completion stream into plain text fragments.
//
// The upstream RAG backend has shipped several envelope shapes over time, so each
// data line is decoded as loose JSON and run through an ordered list of shape
// matchers (see Extract). Lines that do not parse, or that carry no text, are
// dropped without failing the stream.
package sse

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

const (
	dataPrefix   = "data: "
	doneSentinel = "[DONE]"
)

// TransportError is returned by Next when the underlying byte source fails.
// Normal completion is reported as io.EOF instead.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("sse transport error: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Normalizer reads SSE lines from a byte source and yields text fragments in
// stream order. It is single-pass and not safe for concurrent use.
type Normalizer struct {
	reader *bufio.Reader
	err    error
}

// NewNormalizer wraps r. Bytes are decoded as UTF-8 incrementally, so a
// character split across two reads is held back until it is complete.
func NewNormalizer(r io.Reader) *Normalizer {
	decoded := transform.NewReader(r, unicode.UTF8BOM.NewDecoder())
	return &Normalizer{
		reader: bufio.NewReader(decoded),
	}
}

// Next returns the next fragment. It returns io.EOF once the source is
// exhausted and a *TransportError if reading failed. After either, every
// further call returns the same error.
func (n *Normalizer) Next() (string, error) {
	if n.err != nil {
		return "", n.err
	}

	for {
		line, err := n.reader.ReadString('\n')
		if err != nil {
			// whatever is left in line never saw its newline; drop it
			if errors.Is(err, io.EOF) {
				n.err = io.EOF
			} else {
				n.err = &TransportError{Err: err}
			}
			return "", n.err
		}

		if fragment, ok := ParseLine(line); ok {
			return fragment, nil
		}
	}
}

// ParseLine extracts the text carried by a single complete SSE line. The
// boolean is false for lines that are not data lines, the [DONE] sentinel,
// malformed JSON, and envelopes with no text.
func ParseLine(line string) (string, bool) {
	line = strings.TrimSuffix(line, "\n")
	line = strings.TrimSuffix(line, "\r")

	payload, ok := strings.CutPrefix(line, dataPrefix)
	if !ok {
		return "", false
	}

	payload = strings.TrimSpace(payload)
	if payload == "" || payload == doneSentinel {
		return "", false
	}

	var value any
	if err := json.Unmarshal([]byte(payload), &value); err != nil {
		return "", false
	}

	text := Extract(value)
	if text == "" {
		return "", false
	}
	return text, true
}

// Collect drains n and returns every fragment. The error is nil on normal
// completion.
func Collect(n *Normalizer) ([]string, error) {
	var fragments []string
	for {
		fragment, err := n.Next()
		if errors.Is(err, io.EOF) {
			return fragments, nil
		}
		if err != nil {
			return fragments, err
		}
		fragments = append(fragments, fragment)
	}
}
