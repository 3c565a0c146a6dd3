// Package types defines core domain types for the msival runtime.
//
//nolint:revive // types is a common Go package naming convention
package types

import (
	"fmt"
	"strconv"
	"strings"
)

// NullInteger is returned by Record.Integer for null, missing, or non-numeric
// fields. It matches the engine's MSI_NULL_INTEGER sentinel.
const NullInteger = -1 << 31

// FieldKind discriminates the value held by a Field.
type FieldKind uint8

const (
	// FieldNull is an empty field.
	FieldNull FieldKind = iota
	// FieldInteger holds an integer value.
	FieldInteger
	// FieldString holds a string value.
	FieldString
)

// Field is a single typed value in a Record.
type Field struct {
	Kind FieldKind `msgpack:"kind" json:"kind"`
	Int  int       `msgpack:"int,omitempty" json:"int,omitempty"`
	Str  string    `msgpack:"str,omitempty" json:"str,omitempty"`
}

// Int returns an integer field.
func Int(n int) Field { return Field{Kind: FieldInteger, Int: n} }

// Str returns a string field.
func Str(s string) Field { return Field{Kind: FieldString, Str: s} }

// Null returns a null field.
func Null() Field { return Field{} }

// String renders the field the way the engine does: integers in decimal,
// null as the empty string.
func (f Field) String() string {
	switch f.Kind {
	case FieldInteger:
		return strconv.Itoa(f.Int)
	case FieldString:
		return f.Str
	default:
		return ""
	}
}

// Record is an engine diagnostic record: field 0 is the message template,
// fields 1..FieldCount are positional values. Records are immutable once built.
type Record struct {
	fields []Field
}

// NewRecord builds a record from a template and positional fields.
// Field 1 is conventionally the integer diagnostic code.
func NewRecord(template string, fields ...Field) *Record {
	all := make([]Field, 0, len(fields)+1)
	if template == "" {
		all = append(all, Null())
	} else {
		all = append(all, Str(template))
	}
	all = append(all, fields...)
	return &Record{fields: all}
}

// NewErrorRecord builds a template-less record whose field 1 is code and
// whose remaining fields are string values.
func NewErrorRecord(code int, values ...string) *Record {
	fields := make([]Field, 0, len(values)+1)
	fields = append(fields, Int(code))
	for _, v := range values {
		fields = append(fields, Str(v))
	}
	return NewRecord("", fields...)
}

// FieldCount returns the number of positional fields, excluding the template.
func (r *Record) FieldCount() int {
	if r == nil || len(r.fields) == 0 {
		return 0
	}
	return len(r.fields) - 1
}

// Field returns field i. Indices past FieldCount are null.
// A negative index is a programming error and panics.
func (r *Record) Field(i int) Field {
	if i < 0 {
		panic(fmt.Sprintf("types: negative record field index %d", i))
	}
	if r == nil || i >= len(r.fields) {
		return Null()
	}
	return r.fields[i]
}

// Integer returns field i as an integer, or NullInteger when the field is
// null or does not hold a number.
func (r *Record) Integer(i int) int {
	f := r.Field(i)
	switch f.Kind {
	case FieldInteger:
		return f.Int
	case FieldString:
		n, err := strconv.Atoi(strings.TrimSpace(f.Str))
		if err != nil {
			return NullInteger
		}
		return n
	default:
		return NullInteger
	}
}

// String returns field i as a string.
func (r *Record) String(i int) string {
	return r.Field(i).String()
}

// Template returns field 0.
func (r *Record) Template() string {
	return r.String(0)
}

// Fields returns a copy of all fields including the template at index 0.
func (r *Record) Fields() []Field {
	if r == nil {
		return nil
	}
	out := make([]Field, len(r.fields))
	copy(out, r.fields)
	return out
}

// Strings returns every field including the template rendered as strings.
func (r *Record) Strings() []string {
	if r == nil {
		return nil
	}
	out := make([]string, len(r.fields))
	for i, f := range r.fields {
		out[i] = f.String()
	}
	return out
}

// Format renders the record text. With a template, [n] tokens are replaced by
// field n; without one, fields are listed as "1: v1 2: v2".
func (r *Record) Format() string {
	if r == nil {
		return ""
	}
	tmpl := r.Template()
	if tmpl == "" {
		var b strings.Builder
		for i := 1; i <= r.FieldCount(); i++ {
			if i > 1 {
				b.WriteByte(' ')
			}
			fmt.Fprintf(&b, "%d: %s", i, r.String(i))
		}
		return b.String()
	}

	var b strings.Builder
	for i := 0; i < len(tmpl); i++ {
		if tmpl[i] == '[' {
			if end := strings.IndexByte(tmpl[i:], ']'); end > 1 {
				if n, err := strconv.Atoi(tmpl[i+1 : i+end]); err == nil && n >= 0 {
					if n > 0 {
						b.WriteString(r.String(n))
					}
					i += end
					continue
				}
			}
		}
		b.WriteByte(tmpl[i])
	}
	return b.String()
}

// RecordWire is the serialized form of a Record used by the journal and
// storage layers.
type RecordWire struct {
	Fields []Field `msgpack:"fields" json:"fields"`
}

// Wire returns the serializable form of the record.
func (r *Record) Wire() RecordWire {
	return RecordWire{Fields: r.Fields()}
}

// Record rebuilds a Record from its serialized form.
func (w RecordWire) Record() *Record {
	if len(w.Fields) == 0 {
		return NewRecord("")
	}
	fields := make([]Field, len(w.Fields))
	copy(fields, w.Fields)
	return &Record{fields: fields}
}
