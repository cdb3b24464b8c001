package dynamicsql

import "strings"

// scanPlaceholders walks text looking for occurrences of "open...close"
// (e.g. "${" / "}" or "#{" / "}"), honoring the escape rule: a preceding
// backslash escapes the opener, and the escaped form is passed through
// literally with the backslash consumed. handler receives
// the raw expression text found between open and close (not including the
// delimiters) and returns the literal replacement text.
func scanPlaceholders(text, open, close string, handler func(expr string) string) string {
	var out strings.Builder
	i := 0
	for i < len(text) {
		if i+1 <= len(text) && text[i] == '\\' && strings.HasPrefix(text[i+1:], open) {
			out.WriteString(open)
			i += 1 + len(open)
			continue
		}
		if strings.HasPrefix(text[i:], open) {
			end := strings.Index(text[i+len(open):], close)
			if end < 0 {
				out.WriteString(text[i:])
				break
			}
			expr := text[i+len(open) : i+len(open)+end]
			out.WriteString(handler(expr))
			i += len(open) + end + len(close)
			continue
		}
		out.WriteByte(text[i])
		i++
	}
	return out.String()
}
