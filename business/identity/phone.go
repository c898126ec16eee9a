package identity

import "strings"

const countryPrefix = "+91"

// NormalizePhone strips one leading "+91" or a single leading "0". Anything else
// passes through untouched.
func NormalizePhone(raw string) string {
	if strings.HasPrefix(raw, countryPrefix) {
		return raw[len(countryPrefix):]
	}

	return strings.TrimPrefix(raw, "0")
}
