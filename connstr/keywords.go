package connstr

import (
	"fmt"
	"strings"
)

// Keyword is a single key=value pair of a provider connection string.
type Keyword struct {
	Key   string
	Value string
}

// Keywords is an ordered provider connection string.
type Keywords []Keyword

// ParseKeywords splits a provider connection string into its pairs. Values
// may be wrapped in single or double quotes; a doubled quote inside a quoted
// value stands for one quote character.
func ParseKeywords(s string) (Keywords, error) {
	var out Keywords
	i := 0
	for i < len(s) {
		for i < len(s) && (s[i] == ';' || s[i] == ' ' || s[i] == '\t') {
			i++
		}
		if i >= len(s) {
			break
		}

		eq := strings.IndexByte(s[i:], '=')
		if semi := strings.IndexByte(s[i:], ';'); eq < 0 || (semi >= 0 && semi < eq) {
			return nil, fmt.Errorf("keyword %q at offset %d has no value", strings.TrimSpace(s[i:]), i)
		}
		key := strings.TrimSpace(s[i : i+eq])
		if key == "" {
			return nil, fmt.Errorf("empty keyword at offset %d", i)
		}
		i += eq + 1
		for i < len(s) && (s[i] == ' ' || s[i] == '\t') {
			i++
		}

		var value string
		if i < len(s) && (s[i] == '"' || s[i] == '\'') {
			v, next, err := readQuoted(s, i)
			if err != nil {
				return nil, fmt.Errorf("keyword %q: %w", key, err)
			}
			value = v
			i = next
			for i < len(s) && s[i] != ';' {
				if s[i] != ' ' && s[i] != '\t' {
					return nil, fmt.Errorf("keyword %q: unexpected %q after quoted value", key, s[i])
				}
				i++
			}
		} else {
			end := strings.IndexByte(s[i:], ';')
			if end < 0 {
				end = len(s) - i
			}
			value = strings.TrimSpace(s[i : i+end])
			i += end
		}

		out = append(out, Keyword{Key: key, Value: value})
	}
	return out, nil
}

func readQuoted(s string, start int) (string, int, error) {
	quote := s[start]
	var b strings.Builder
	i := start + 1
	for i < len(s) {
		if s[i] == quote {
			if i+1 < len(s) && s[i+1] == quote {
				b.WriteByte(quote)
				i += 2
				continue
			}
			return b.String(), i + 1, nil
		}
		b.WriteByte(s[i])
		i++
	}
	return "", 0, fmt.Errorf("unterminated quoted value starting at offset %d", start)
}

// Get returns the value of the first pair whose key matches name
// case-insensitively.
func (k Keywords) Get(name string) (string, bool) {
	for _, kw := range k {
		if strings.EqualFold(kw.Key, name) {
			return kw.Value, true
		}
	}
	return "", false
}

// Has reports whether any of names is present.
func (k Keywords) Has(names ...string) bool {
	for _, name := range names {
		if _, ok := k.Get(name); ok {
			return true
		}
	}
	return false
}

// String renders the pairs, quoting values that need it.
func (k Keywords) String() string {
	parts := make([]string, 0, len(k))
	for _, kw := range k {
		parts = append(parts, kw.Key+"="+quoteValue(kw.Value))
	}
	return strings.Join(parts, ";")
}

func quoteValue(v string) string {
	if !strings.ContainsAny(v, ";'\"") && strings.TrimSpace(v) == v {
		return v
	}
	if !strings.Contains(v, `"`) {
		return `"` + v + `"`
	}
	if !strings.Contains(v, "'") {
		return "'" + v + "'"
	}
	return `"` + strings.ReplaceAll(v, `"`, `""`) + `"`
}

var secretKeys = []string{"password", "pwd"}

// Redact masks password values so a connection string can be logged.
// Strings that do not parse are masked entirely.
func Redact(s string) string {
	if s == "" {
		return s
	}
	keywords, err := ParseKeywords(s)
	if err != nil {
		return "<unparseable connection string>"
	}
	redacted := false
	for i, kw := range keywords {
		if strings.EqualFold(kw.Key, KeywordProviderConnectionString) {
			keywords[i].Value = Redact(kw.Value)
			redacted = redacted || keywords[i].Value != kw.Value
			continue
		}
		for _, secret := range secretKeys {
			if strings.EqualFold(kw.Key, secret) {
				keywords[i].Value = "*****"
				redacted = true
			}
		}
	}
	if !redacted {
		return s
	}
	return keywords.String()
}
