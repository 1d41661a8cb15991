package domain

import "strings"

// SanitizeText makes s storable in a Postgres text column: invalid UTF-8 is dropped along with
// NUL, which text and jsonb refuse
func SanitizeText(s string) string {
	return strings.ReplaceAll(strings.ToValidUTF8(s, ""), "\x00", "")
}

// SanitizeValue applies SanitizeText to every string in a decoded JSON value, map keys included
func SanitizeValue(v interface{}) interface{} {
	switch t := v.(type) {
	case string:
		return SanitizeText(t)
	case []interface{}:
		for i := range t {
			t[i] = SanitizeValue(t[i])
		}
		return t
	case map[string]interface{}:
		clean := make(map[string]interface{}, len(t))
		for k, val := range t {
			clean[SanitizeText(k)] = SanitizeValue(val)
		}
		return clean
	default:
		return v
	}
}
