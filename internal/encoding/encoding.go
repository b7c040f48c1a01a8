// Package encoding converts log text into the byte encoding configured for a writer.
package encoding

import (
	"strings"

	"github.com/hyp3rd/ewrap"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
)

// UTF8 is the canonical name of the default encoding.
const UTF8 = "utf-8"

// Encoder turns text chunks into bytes.
type Encoder struct {
	name string
	enc  encoding.Encoding
}

// New resolves an encoding label. An empty label, "utf8" and "utf-8" select the UTF-8
// fast path; anything else must be a WHATWG encoding label such as "gbk" or "shift_jis".
func New(name string) (*Encoder, error) {
	normalized := strings.ToLower(strings.TrimSpace(name))
	if normalized == "" || normalized == "utf8" || normalized == UTF8 {
		return &Encoder{name: UTF8}, nil
	}

	enc, err := htmlindex.Get(normalized)
	if err != nil {
		return nil, ewrap.Wrap(err, "unsupported text encoding").
			WithMetadata("encoding", name)
	}

	canonical, err := htmlindex.Name(enc)
	if err != nil {
		canonical = normalized
	}

	if canonical == UTF8 {
		return &Encoder{name: UTF8}, nil
	}

	return &Encoder{name: canonical, enc: enc}, nil
}

// Name returns the canonical encoding name.
func (e *Encoder) Name() string {
	return e.name
}

// Encode returns a freshly allocated byte slice holding s in the target encoding.
func (e *Encoder) Encode(s string) ([]byte, error) {
	if e == nil || e.enc == nil {
		return []byte(s), nil
	}

	out, err := e.enc.NewEncoder().String(s)
	if err != nil {
		return nil, ewrap.Wrap(err, "encoding log line").
			WithMetadata("encoding", e.name)
	}

	return []byte(out), nil
}
