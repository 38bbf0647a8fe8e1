package bot

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// Args are the parsed arguments of a command: bare words in order plus
// key=value options.
type Args struct {
	Positional []string
	Options    map[string]string
}

// Get returns the option for key, or "" when absent.
func (a Args) Get(key string) string {
	return a.Options[key]
}

// Has reports whether the option key was given, even with an empty value.
func (a Args) Has(key string) bool {
	_, ok := a.Options[key]
	return ok
}

// Arg returns the i-th positional argument, or "".
func (a Args) Arg(i int) string {
	if i < 0 || i >= len(a.Positional) {
		return ""
	}
	return a.Positional[i]
}

// Rest joins the positional arguments from i on with spaces.
func (a Args) Rest(i int) string {
	if i >= len(a.Positional) {
		return ""
	}
	return strings.Join(a.Positional[i:], " ")
}

// Split tokenises args on whitespace. Double or single quotes group words
// and a backslash escapes the next character.
func Split(args string) ([]string, error) {
	var (
		tokens  []string
		cur     strings.Builder
		quote   rune
		escaped bool
		inToken bool
	)
	for _, r := range args {
		switch {
		case escaped:
			cur.WriteRune(r)
			escaped = false
		case r == '\\':
			escaped = true
			inToken = true
		case quote != 0:
			if r == quote {
				quote = 0
			} else {
				cur.WriteRune(r)
			}
		case r == '"' || r == '\'':
			quote = r
			inToken = true
		case unicode.IsSpace(r):
			if inToken {
				tokens = append(tokens, cur.String())
				cur.Reset()
				inToken = false
			}
		default:
			cur.WriteRune(r)
			inToken = true
		}
	}
	if quote != 0 {
		return nil, errors.New("unterminated quote")
	}
	if escaped {
		cur.WriteRune('\\')
	}
	if inToken {
		tokens = append(tokens, cur.String())
	}
	return tokens, nil
}

// ParseArgs splits args and separates key=value options from bare words.
// Keys are lower-cased; a token whose key part is not a plain identifier is
// kept as a bare word.
func ParseArgs(args string) (Args, error) {
	tokens, err := Split(args)
	if err != nil {
		return Args{}, err
	}
	out := Args{Options: map[string]string{}}
	for _, tok := range tokens {
		key, value, ok := strings.Cut(tok, "=")
		if ok && isOptionKey(key) {
			out.Options[strings.ToLower(key)] = value
			continue
		}
		out.Positional = append(out.Positional, tok)
	}
	return out, nil
}

func isOptionKey(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r != '_' && (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') {
			return false
		}
	}
	return true
}

// ParseListArgs reads the optional "[page] [keyword...]" arguments of list
// commands. Pages are 1-based; the default is 1.
func ParseListArgs(args string) (int, string) {
	fields := strings.Fields(args)
	if len(fields) == 0 {
		return 1, ""
	}
	if p, err := strconv.Atoi(fields[0]); err == nil {
		if p < 1 {
			p = 1
		}
		return p, strings.Join(fields[1:], " ")
	}
	return 1, strings.Join(fields, " ")
}

// ParseIDArg extracts the first word of a command argument string.
func ParseIDArg(args string) (string, error) {
	fields := strings.Fields(args)
	if len(fields) == 0 {
		return "", errors.New("ID is required")
	}
	return fields[0], nil
}

// ParseSwitch reads on/off style values.
func ParseSwitch(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "on", "true", "yes", "1", "enabled", "enable":
		return true, nil
	case "off", "false", "no", "0", "disabled", "disable":
		return false, nil
	}
	return false, fmt.Errorf("expected on or off, got %q", s)
}

// SplitList splits a comma separated option value, dropping blanks.
func SplitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
