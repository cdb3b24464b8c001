package dynamicsql

import "github.com/spf13/cast"

// toDisplayString renders a ${...} substitution result as literal SQL text,
// using spf13/cast for the loose scalar coercion (numbers, bools, etc. all
// need to become plain text, not Go's %v formatting of e.g. float64).
func toDisplayString(v any) string {
	return cast.ToString(v)
}
