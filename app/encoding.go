package app

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/ianaindex"
)

// codec converts between the child's character set and UTF-8. The zero
// value passes bytes through.
type codec struct {
	cm *charmap.Charmap
}

// lookupCodec resolves a character set name such as "iso8859-1" or
// "windows-1252". Empty names and UTF-8 select pass-through. Only single
// byte charsets are accepted so chunks can be converted independently.
func lookupCodec(name string) (codec, error) {
	key := normalizeCharset(name)
	if key == "" || key == "utf8" {
		return codec{}, nil
	}
	if e, err := ianaindex.IANA.Encoding(name); err == nil && e != nil {
		if cm, ok := e.(*charmap.Charmap); ok {
			return codec{cm: cm}, nil
		}
		return codec{}, fmt.Errorf("encoding %q: only single byte charsets are supported", name)
	}
	for _, e := range charmap.All {
		cm, ok := e.(*charmap.Charmap)
		if ok && normalizeCharset(cm.String()) == key {
			return codec{cm: cm}, nil
		}
	}
	return codec{}, fmt.Errorf("unknown encoding %q", name)
}

func normalizeCharset(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}

func (c codec) decode(p []byte) []byte {
	if c.cm == nil {
		return p
	}
	out, err := c.cm.NewDecoder().Bytes(p)
	if err != nil {
		return p
	}
	return out
}

// encode maps UTF-8 input to the charset, replacing runes it lacks.
func (c codec) encode(p []byte) []byte {
	if c.cm == nil {
		return p
	}
	out, err := encoding.ReplaceUnsupported(c.cm.NewEncoder()).Bytes(p)
	if err != nil {
		return p
	}
	return out
}

func (c codec) String() string {
	if c.cm == nil {
		return "UTF-8"
	}
	return c.cm.String()
}
