// Package wire renders canonical values and execution failures as JSON in
// the representation format clients of the script endpoint expect.
//
// The compact form pads brackets with single spaces ("[ 1, 2 ]",
// "{ "k" : v }"), sorts map keys, and renders null as the string "null".
package wire

import (
	"bytes"
	"encoding/json"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/hanpama/graphscript/internal/canonical"
)

// Renderer is anything with a wire form.
type Renderer interface {
	Format() string
}

// Representation wraps a successful result.
type Representation struct {
	Value canonical.Value
}

func (r Representation) Format() string { return Format(r.Value) }

func (r Representation) MarshalJSON() ([]byte, error) { return []byte(r.Format()), nil }

// FailureRepresentation is the body returned for a failed execution.
type FailureRepresentation struct {
	Kind    string
	Message string
}

func (f FailureRepresentation) Format() string {
	return "{ " + quote("exception") + " : " + quote(f.Kind) + ", " +
		quote("message") + " : " + quote(f.Message) + " }"
}

func (f FailureRepresentation) MarshalJSON() ([]byte, error) { return []byte(f.Format()), nil }

// Encode writes r to w followed by a newline. Pretty output is re-indented
// with two spaces.
func Encode(w io.Writer, r Renderer, pretty bool) error {
	s := r.Format()
	if !pretty {
		_, err := io.WriteString(w, s+"\n")
		return err
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, []byte(s), "", "  "); err != nil {
		return err
	}
	buf.WriteByte('\n')
	_, err := buf.WriteTo(w)
	return err
}

// Format renders v in compact form.
func Format(v canonical.Value) string {
	var b strings.Builder
	write(&b, v)
	return b.String()
}

func write(b *strings.Builder, v canonical.Value) {
	switch x := v.(type) {
	case nil, canonical.Null:
		b.WriteString(quote("null"))
	case canonical.Bool:
		b.WriteString(strconv.FormatBool(bool(x)))
	case canonical.Int:
		b.WriteString(strconv.FormatInt(int64(x), 10))
	case canonical.Float:
		b.WriteString(FormatFloat(x.Value, x.Bits))
	case canonical.String:
		b.WriteString(quote(string(x)))
	case canonical.List:
		writeList(b, []canonical.Value(x))
	case canonical.PathRef:
		writeList(b, []canonical.Value(x))
	case canonical.Map:
		writeMap(b, x)
	case canonical.VertexRef:
		writeMap(b, canonical.Map{
			"data": x.Data,
			"self": canonical.String(x.Self),
		})
	case canonical.EdgeRef:
		writeMap(b, canonical.Map{
			"data":  x.Data,
			"self":  canonical.String(x.Self),
			"start": canonical.String(x.Start),
			"end":   canonical.String(x.End),
			"type":  canonical.String(x.Label),
		})
	}
}

func writeList(b *strings.Builder, xs []canonical.Value) {
	if len(xs) == 0 {
		b.WriteString("[ ]")
		return
	}
	b.WriteString("[ ")
	for i, x := range xs {
		if i > 0 {
			b.WriteString(", ")
		}
		write(b, x)
	}
	b.WriteString(" ]")
}

func writeMap(b *strings.Builder, m canonical.Map) {
	if len(m) == 0 {
		b.WriteString("{ }")
		return
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	b.WriteString("{ ")
	for i, k := range keys {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(quote(k))
		b.WriteString(" : ")
		write(b, m[k])
	}
	b.WriteString(" }")
}

// FormatFloat renders the shortest decimal that round-trips at the given
// precision, always with a decimal point or an exponent.
func FormatFloat(f float64, bits int) string {
	if bits != 32 {
		bits = 64
	}
	s := strconv.FormatFloat(f, 'g', -1, bits)
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return s
}

func quote(s string) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(s)
	return strings.TrimSuffix(buf.String(), "\n")
}
