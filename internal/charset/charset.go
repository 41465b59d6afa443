// Package charset turns a named text encoding into a reader that yields UTF-8.
package charset

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Transformer returns a fresh decoder for the named encoding.
// utf-8 validates and drops a leading byte order mark: invalid sequences
// surface as read errors instead of being replaced, so a wrong guess fails
// loudly.
func Transformer(name string) (transform.Transformer, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "utf-8", "utf8":
		return transform.Chain(encoding.UTF8Validator, unicode.UTF8BOM.NewDecoder()), nil
	case "latin1", "latin-1", "iso-8859-1", "iso8859-1", "l1":
		return charmap.ISO8859_1.NewDecoder(), nil
	}
	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil {
		return nil, fmt.Errorf("unknown encoding %q: %w", name, err)
	}
	if enc == nil {
		return nil, fmt.Errorf("unsupported encoding %q", name)
	}
	return enc.NewDecoder(), nil
}

// Validate reports whether name can be decoded.
func Validate(name string) error {
	_, err := Transformer(name)
	return err
}

// NewReader wraps r so that reads return UTF-8 decoded from the named encoding.
func NewReader(r io.Reader, name string) (io.Reader, error) {
	t, err := Transformer(name)
	if err != nil {
		return nil, err
	}
	return transform.NewReader(bufio.NewReader(r), t), nil
}
