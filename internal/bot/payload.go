package bot

import (
	"errors"
	"strings"
)

// Callback payloads are a tagged op plus positional arguments. The encoded
// form is op and args joined by '|', with '%' and '|' escaped inside each
// field, so arguments containing the delimiter (or underscores, or anything
// else) round-trip unambiguously. Telegram caps callback data at 64 bytes;
// arguments are therefore kept short (session ids, indexes) wherever
// possible, with filesystem paths the one unavoidable exception.

const payloadSep = "|"

var errEmptyPayload = errors.New("empty callback payload")

func escapeField(s string) string {
	s = strings.ReplaceAll(s, "%", "%25")
	return strings.ReplaceAll(s, payloadSep, "%7C")
}

func unescapeField(s string) string {
	s = strings.ReplaceAll(s, "%7C", payloadSep)
	return strings.ReplaceAll(s, "%25", "%")
}

// encodePayload builds the callback data for op with its arguments.
func encodePayload(op string, args ...string) string {
	parts := make([]string, 0, len(args)+1)
	parts = append(parts, escapeField(op))
	for _, a := range args {
		parts = append(parts, escapeField(a))
	}
	return strings.Join(parts, payloadSep)
}

// decodePayload splits callback data back into op and arguments.
func decodePayload(data string) (op string, args []string, err error) {
	if data == "" {
		return "", nil, errEmptyPayload
	}
	parts := strings.Split(data, payloadSep)
	op = unescapeField(parts[0])
	for _, p := range parts[1:] {
		args = append(args, unescapeField(p))
	}
	return op, args, nil
}
