package stream

import (
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

type fieldKind uint8

const (
	fieldEnum fieldKind = iota + 1
	fieldRaw
)

// Field is one entry of a subscription's field list: either a value from
// one of the field catalogs or a caller-supplied raw string. A single Field
// may itself hold a comma-separated list, as the catalogs' "all" values do.
// Both kinds normalize the same way, so Enum(QuoteBidPrice) and Raw("1")
// produce identical requests.
type Field struct {
	kind  fieldKind
	value string
}

// Enum wraps a catalog value.
func Enum[E ~string](v E) Field {
	return Field{kind: fieldEnum, value: string(v)}
}

// Raw wraps a raw field string such as "0,1,2" or "3".
func Raw(s string) Field {
	return Field{kind: fieldRaw, value: s}
}

// RawInt wraps a numeric field id.
func RawInt(n int) Field {
	return Field{kind: fieldRaw, value: strconv.Itoa(n)}
}

// IsEnum reports whether f came from a catalog.
func (f Field) IsEnum() bool {
	return f.kind == fieldEnum
}

// String returns the normalized form of f alone.
func (f Field) String() string {
	return joinFields([]Field{f})
}

// joinFields normalizes and comma-joins fields. Every element is split on
// commas, trimmed, and NFKC-normalized so full-width digits from pasted
// input compare equal to ASCII ones; empty parts are dropped.
func joinFields(fields []Field) string {
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f.value)
	}

	return joinList(parts)
}

// joinList applies field normalization to plain strings, used for keys.
func joinList(items []string) string {
	var out []string

	for _, item := range items {
		for _, part := range strings.Split(item, ",") {
			part = strings.TrimSpace(norm.NFKC.String(part))
			if part != "" {
				out = append(out, part)
			}
		}
	}

	return strings.Join(out, ",")
}

// Fields converts catalog values to Fields.
func Fields[E ~string](values ...E) []Field {
	out := make([]Field, len(values))
	for i, v := range values {
		out[i] = Enum(v)
	}

	return out
}

// allOf returns the catalog's "all" value for ids 0..n-1.
func allOf[E ~string](n int) E {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = strconv.Itoa(i)
	}

	return E(strings.Join(ids, ","))
}
