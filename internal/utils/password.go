package utils

import "regexp"

var specialChar = regexp.MustCompile(`[!@#\$%\^&\*\(\)\-_=\+\[\]\{\}\\|;:'",<>\./\?]`)

// IsPasswordValid enforces password policy (>=8 chars, >=1 special char)
func IsPasswordValid(p string) bool {
	if len(p) < 8 {
		return false
	}
	return specialChar.MatchString(p)
}
