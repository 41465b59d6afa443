package models

import "fmt"

// Descriptor is the (delimiter, encoding) pair a file parses under.
type Descriptor struct {
	Delimiter rune   `json:"delimiter"`
	Encoding  string `json:"encoding"`
}

func (d Descriptor) String() string {
	return fmt.Sprintf("delimiter=%s encoding=%s", DelimiterName(d.Delimiter), d.Encoding)
}

// DelimiterName spells control characters so they survive logs and terminals.
func DelimiterName(r rune) string {
	if r == '\t' {
		return `\t`
	}
	return string(r)
}

// Artifact is the single locally stored copy of the downloaded extract.
type Artifact struct {
	Path string `json:"path"`
	Size int64  `json:"size"`
}
