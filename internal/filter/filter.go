// Package filter implements the cookbook filter-rule DSL: a lossless,
// order-preserving codec between structured query rules and the flat string
// stored in a cookbook's queryFilterString field.
//
// Grammar: rules are joined with " AND "; each rule is
// "field operator value1,value2,...". Field, operator, and values are
// percent-escaped for the reserved set '%', ',', and space, so an unescaped
// " AND " is always a rule separator and an unescaped comma is always a value
// separator. A bare "AND" token is additionally encoded as "%41ND" to keep it
// from colliding with the separator. The server stores the string exactly as
// submitted; this codec is the single source of truth for reconstruction.
package filter

import (
	"strings"
)

// Rule is one clause of a cookbook filter.
type Rule struct {
	Field    string   `json:"field"`
	Operator string   `json:"operator"`
	Values   []string `json:"values"`
}

// Equal reports structural equality; nil and empty value lists compare equal.
func (r Rule) Equal(other Rule) bool {
	if r.Field != other.Field || r.Operator != other.Operator {
		return false
	}
	if len(r.Values) != len(other.Values) {
		return false
	}
	for i := range r.Values {
		if r.Values[i] != other.Values[i] {
			return false
		}
	}
	return true
}

// ruleSeparator joins rule fragments. Spaces inside tokens are escaped, so
// this sequence is unambiguous in built strings.
const ruleSeparator = " AND "

// valueSeparator joins values within a rule.
const valueSeparator = ","

// Fields is the known filter field set, offered to the rule editor. Parse
// preserves unknown fields verbatim so externally edited strings survive a
// round trip.
var Fields = []string{
	"categories",
	"tags",
	"tools",
	"foods",
	"households",
}

// Operators is the known operator set. Operators are single tokens by
// construction of the grammar.
var Operators = []string{
	"IN",
	"NOT_IN",
	"CONTAINS_ALL",
	"=",
	"<>",
}

// KnownField reports whether f is in the known field set.
func KnownField(f string) bool {
	for _, known := range Fields {
		if f == known {
			return true
		}
	}
	return false
}

// KnownOperator reports whether op is in the known operator set.
func KnownOperator(op string) bool {
	for _, known := range Operators {
		if op == known {
			return true
		}
	}
	return false
}

// Build serializes rules in input order. Rules with an empty value set are
// still emitted as "field operator" so a partially configured rule is not
// silently dropped while the user is editing. Build is the exact inverse of
// Parse for any rule list Parse can produce.
func Build(rules []Rule) string {
	if len(rules) == 0 {
		return ""
	}

	fragments := make([]string, 0, len(rules))
	for _, r := range rules {
		var b strings.Builder
		b.WriteString(escapeToken(r.Field))
		b.WriteByte(' ')
		b.WriteString(escapeToken(r.Operator))
		if len(r.Values) > 0 {
			b.WriteByte(' ')
			for i, v := range r.Values {
				if i > 0 {
					b.WriteString(valueSeparator)
				}
				b.WriteString(escapeToken(v))
			}
		}
		fragments = append(fragments, b.String())
	}

	return strings.Join(fragments, ruleSeparator)
}

// Parse decodes a filter string. The parser is tolerant: unknown fields and
// operators are preserved verbatim, and a malformed fragment (missing
// operator) is skipped individually rather than failing the whole parse.
// The empty string parses to nil.
func Parse(text string) []Rule {
	if text == "" {
		return nil
	}

	var rules []Rule
	for _, fragment := range strings.Split(text, ruleSeparator) {
		rule, ok := parseFragment(fragment)
		if !ok {
			continue
		}
		rules = append(rules, rule)
	}
	return rules
}

// parseFragment decodes a single "field operator values" fragment.
func parseFragment(fragment string) (Rule, bool) {
	parts := strings.SplitN(fragment, " ", 3)
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return Rule{}, false
	}

	rule := Rule{
		Field:    unescapeToken(parts[0]),
		Operator: unescapeToken(parts[1]),
	}

	if len(parts) == 3 {
		raw := strings.Split(parts[2], valueSeparator)
		rule.Values = make([]string, len(raw))
		for i, v := range raw {
			rule.Values[i] = unescapeToken(v)
		}
	}

	return rule, true
}

// reserved reports whether b must be escaped inside a token.
func reserved(b byte) bool {
	return b == '%' || b == ',' || b == ' '
}

const hexDigits = "0123456789ABCDEF"

// escapeToken percent-encodes the reserved set and neutralizes a bare "AND".
func escapeToken(s string) string {
	escaped := s
	if strings.ContainsAny(s, "%, ") {
		var b strings.Builder
		b.Grow(len(s) + 4)
		for i := 0; i < len(s); i++ {
			if reserved(s[i]) {
				b.WriteByte('%')
				b.WriteByte(hexDigits[s[i]>>4])
				b.WriteByte(hexDigits[s[i]&0xf])
				continue
			}
			b.WriteByte(s[i])
		}
		escaped = b.String()
	}

	// A token equal to the separator keyword would be read as a rule
	// boundary; encode its first byte.
	if escaped == "AND" {
		return "%41ND"
	}
	return escaped
}

// unescapeToken decodes %XX triplets, leaving malformed escapes verbatim.
func unescapeToken(s string) string {
	if !strings.ContainsRune(s, '%') {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '%' && i+2 < len(s) {
			hi, okHi := unhex(s[i+1])
			lo, okLo := unhex(s[i+2])
			if okHi && okLo {
				b.WriteByte(hi<<4 | lo)
				i += 2
				continue
			}
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

func unhex(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	}
	return 0, false
}
