// internal/rules/quote.go
package rules

import (
	"errors"
	"strings"
)

/*
 * Phrase quoting for proximity-style operators.
 *
 * A phrase fragment has the shape
 *
 *   field:"(seg) (seg)"~N
 *
 * and is escaped at two levels so arbitrary values survive:
 *
 *   1. segment: the value byte for byte, wrapped in quotes with `\` and `"` escaped when it
 *      is empty or holds whitespace, a quote or a backslash
 *   2. phrase:  the joined "(seg) (seg)" text with `\` and `"` escaped again, since it sits
 *      inside the outer phrase quotes
 *
 * So "hello world" and "foo" render as (\"hello world\") (foo). An unquoted segment never
 * holds whitespace, which makes the ") (" separator unambiguous outside quoted segments.
 * ParsePhraseSegments inverts both levels.
 */

// Phrase separators.
const (
	segmentOpen  = "("
	segmentClose = ")"
	segmentJoin  = ") ("
)

var errMalformedPhrase = errors.New("malformed phrase")

// quoteSegment applies the segment-level escaping to one value.
func quoteSegment(value string) string {
	if value == "" || strings.ContainsAny(value, `"\`) || needsQuoting(value) {
		return `"` + escapeQuoted(value) + `"`
	}
	return value
}

// Phrase renders segments as the escaped body of a quoted phrase (without outer quotes).
func Phrase(values []string) string {
	segs := make([]string, len(values))
	for i, v := range values {
		segs[i] = quoteSegment(v)
	}
	return escapeQuoted(segmentOpen + strings.Join(segs, segmentJoin) + segmentClose)
}

// ParsePhraseSegments extracts the segment values of a compiled phrase fragment such as
// `members.subname:"(\"hello world\") (foo)"~3`, undoing both escaping levels.
func ParsePhraseSegments(fragment string) ([]string, error) {
	start := strings.Index(fragment, `:"`)
	end := strings.LastIndex(fragment, `"~`)
	if start < 0 || end < start+2 {
		return nil, errMalformedPhrase
	}

	body, err := unescapeQuoted(fragment[start+2 : end])
	if err != nil {
		return nil, err
	}
	if !strings.HasPrefix(body, segmentOpen) || !strings.HasSuffix(body, segmentClose) || len(body) < 2 {
		return nil, errMalformedPhrase
	}
	rest := body[1:]

	var values []string
	for {
		var seg string
		if strings.HasPrefix(rest, `"`) {
			closing := closingQuote(rest)
			if closing < 0 {
				return nil, errMalformedPhrase
			}
			seg, err = unescapeQuoted(rest[1:closing])
			if err != nil {
				return nil, err
			}
			rest = rest[closing+1:]
		} else {
			// unquoted segments hold no whitespace: stop at the separator or the final ")"
			if idx := strings.IndexByte(rest, ' '); idx >= 0 {
				if idx == 0 {
					return nil, errMalformedPhrase
				}
				seg, rest = rest[:idx-1], rest[idx-1:]
			} else {
				seg, rest = rest[:len(rest)-1], rest[len(rest)-1:]
			}
		}
		values = append(values, seg)

		switch {
		case rest == segmentClose:
			return values, nil
		case strings.HasPrefix(rest, segmentJoin):
			rest = rest[len(segmentJoin):]
		default:
			return nil, errMalformedPhrase
		}
	}
}

// closingQuote returns the index of the quote ending the quoted text that starts at s[0].
func closingQuote(s string) int {
	for i := 1; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case '"':
			return i
		}
	}
	return -1
}

func unescapeQuoted(s string) (string, error) {
	if !strings.Contains(s, `\`) {
		return s, nil
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' {
			i++
			if i == len(s) {
				return "", errMalformedPhrase
			}
		}
		b.WriteByte(s[i])
	}
	return b.String(), nil
}
