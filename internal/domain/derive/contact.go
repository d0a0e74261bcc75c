package derive

import (
	"regexp"
	"strings"
)

var (
	phonePattern   = regexp.MustCompile(`^\d{10}$`)
	emailPattern   = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	aadhaarPattern = regexp.MustCompile(`^\d{12}$`)
	pinPattern     = regexp.MustCompile(`^\d{6}$`)
)

const (
	AadhaarLength = 12
	PinLength     = 6
)

// Empty values are valid for every contact check below; the fields are optional.

func ValidatePhone(s string) Result[string] {
	return check(s, phonePattern, "Phone number must be 10 digits")
}

func ValidateEmail(s string) Result[string] {
	return check(s, emailPattern, "Invalid email format")
}

func ValidateAadhaar(s string) Result[string] {
	return check(s, aadhaarPattern, "Aadhaar number must be 12 digits")
}

func ValidatePin(s string) Result[string] {
	return check(s, pinPattern, "Invalid PIN code")
}

func check(s string, re *regexp.Regexp, msg string) Result[string] {
	s = strings.TrimSpace(s)
	if s == "" || re.MatchString(s) {
		return valid(s)
	}
	return invalid[string](msg)
}

// SanitizeDigits keeps the digits of s, truncated to limit when limit > 0.
func SanitizeDigits(s string, limit int) string {
	var b strings.Builder
	for _, r := range s {
		if r < '0' || r > '9' {
			continue
		}
		if limit > 0 && b.Len() >= limit {
			break
		}
		b.WriteRune(r)
	}
	return b.String()
}
