package bot

import (
	"errors"
	"strings"
	"unicode"
)

var errUnterminatedQuote = errors.New("unterminated quote in arguments")

// splitArgs tokenizes a command tail. Double-quoted segments keep their
// spaces; quotes may appear mid-token ( foo"bar baz" is one token ). An
// unterminated quote is an error so the user gets usage guidance instead of
// silently mangled arguments.
func splitArgs(s string) ([]string, error) {
	var args []string
	var cur strings.Builder
	inQuote := false
	hasToken := false

	for _, r := range s {
		switch {
		case r == '"':
			inQuote = !inQuote
			hasToken = true
		case unicode.IsSpace(r) && !inQuote:
			if hasToken {
				args = append(args, cur.String())
				cur.Reset()
				hasToken = false
			}
		default:
			cur.WriteRune(r)
			hasToken = true
		}
	}
	if inQuote {
		return nil, errUnterminatedQuote
	}
	if hasToken {
		args = append(args, cur.String())
	}
	return args, nil
}

// splitOwnerRepo parses "owner/repo". Both halves must be non-empty.
func splitOwnerRepo(s string) (owner, repo string, ok bool) {
	owner, repo, found := strings.Cut(strings.TrimSpace(s), "/")
	if !found || owner == "" || repo == "" {
		return "", "", false
	}
	return owner, repo, true
}
