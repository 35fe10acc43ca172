package utils

import (
	"regexp"
	"strings"
)

var phonePattern = regexp.MustCompile(`^\+?[0-9]{7,15}$`)

// IsPhone reports whether s looks like a phone number: digits with an optional leading +
func IsPhone(s string) bool {
	return phonePattern.MatchString(s)
}

// IsEmail reports whether s has the shape local@domain
func IsEmail(s string) bool {
	at := strings.LastIndex(s, "@")
	return at > 0 && at < len(s)-1 && !strings.ContainsAny(s, " \t")
}

// NormalizeEmail trims and lower-cases an email address
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// EmailLocalPart returns the part of an email address before the @
func EmailLocalPart(email string) string {
	if at := strings.Index(email, "@"); at >= 0 {
		return email[:at]
	}
	return email
}

// StringPtr returns nil for an empty string and a pointer otherwise
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Deref returns the pointed string or ""
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
