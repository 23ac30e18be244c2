// Copyright 2026 BWI GmbH and Skipper contributors
// SPDX-License-Identifier: Apache-2.0

// Package properties provides the low-level parsing used by deployment
// property resolution: shell-like command tokenizing, comma-delimited lists
// with single-quoted values, delimited key:value maps, indexed property
// addressing, and YAML fragment binding.
package properties

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/google/shlex"
)

// Tokenize splits a command string into ordered shell-like tokens, honoring
// single and double quoting so that quoted segments containing spaces or
// commas stay one token. An empty or blank input yields no tokens.
func Tokenize(s string) ([]string, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	tokens, err := shlex.Split(s)
	if err != nil {
		return nil, fmt.Errorf("tokenizing %q: %w", s, err)
	}
	return tokens, nil
}

// quotedPair matches KEY='value' where the value is wrapped in single quotes
// and may contain unescaped commas.
var quotedPair = regexp.MustCompile(`([^\s,=]+)='([^']*)'`)

// ParseDelimitedPairs parses a comma-delimited list of KEY=VALUE entries
// where a value wrapped in single quotes may contain embedded commas, e.g.
//
//	JAVA_TOOL_OPTIONS='thing1,thing2',foo='bar,baz',car=caz
//
// Quoted entries are extracted first (in order of appearance, quotes
// stripped), the matched substrings are removed, and whatever remains is
// split on commas to recover the unquoted entries. The result concatenates
// quoted entries followed by unquoted entries.
//
// An unquoted value must not itself contain a comma; if it does it will be
// mis-split into bogus entries. That is a documented limitation of the
// format, not something this parser attempts to repair.
func ParseDelimitedPairs(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var pairs []string
	rest := s
	for _, m := range quotedPair.FindAllStringSubmatch(s, -1) {
		pairs = append(pairs, m[1]+"="+m[2])
		rest = strings.Replace(rest, m[0], "", 1)
	}
	for part := range strings.SplitSeq(rest, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		pairs = append(pairs, part)
	}
	return pairs
}

// KeyValue is one parsed KEY=VALUE entry, order-preserving.
type KeyValue struct {
	Key   string
	Value string
}

// ParseKeyValuePairs parses a delimited KEY=VALUE list (quoting rules as in
// ParseDelimitedPairs) into ordered entries. An entry without '=' is an
// error naming the entry.
func ParseKeyValuePairs(s string) ([]KeyValue, error) {
	var out []KeyValue
	for _, pair := range ParseDelimitedPairs(s) {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("entry %q is not in key=value form", pair)
		}
		out = append(out, KeyValue{Key: strings.TrimSpace(key), Value: value})
	}
	return out, nil
}

// ParseDelimitedMap parses a comma-delimited list of key:value pairs, e.g.
// "app:billing,tier:backend", into a map. The value side may itself contain
// colons (the split is on the first colon only) and a single-quoted value
// may contain commas. A pair without a colon is an error naming the pair.
//
// The destination is an ordinary map with insertion-overwrite semantics: a
// duplicate key later in the list replaces the earlier value.
func ParseDelimitedMap(s string) (map[string]string, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	out := map[string]string{}
	for _, pair := range splitRespectingQuotes(s) {
		key, value, ok := strings.Cut(pair, ":")
		if !ok {
			return nil, fmt.Errorf("pair %q is not in key:value form", pair)
		}
		out[strings.TrimSpace(key)] = strings.TrimSpace(unquote(value))
	}
	return out, nil
}

// splitRespectingQuotes splits on commas that are not inside single quotes.
func splitRespectingQuotes(s string) []string {
	var parts []string
	var sb strings.Builder
	inQuote := false
	for _, r := range s {
		switch {
		case r == '\'':
			inQuote = !inQuote
			sb.WriteRune(r)
		case r == ',' && !inQuote:
			if p := strings.TrimSpace(sb.String()); p != "" {
				parts = append(parts, p)
			}
			sb.Reset()
		default:
			sb.WriteRune(r)
		}
	}
	if p := strings.TrimSpace(sb.String()); p != "" {
		parts = append(parts, p)
	}
	return parts
}

func unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && strings.HasPrefix(s, "'") && strings.HasSuffix(s, "'") {
		return s[1 : len(s)-1]
	}
	return s
}
