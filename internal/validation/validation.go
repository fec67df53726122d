package validation

import (
	"math"
	"net/mail"
	"regexp"
	"strings"
	"unicode/utf8"
)

// MinPasswordLength is the shortest accepted password
const MinPasswordLength = 8

// HistoryPeriods are the selectable history windows, in hours
var HistoryPeriods = []int{1, 3, 6, 12, 24}

// DefaultHistoryPeriod is used when the caller does not pick one
const DefaultHistoryPeriod = 24

var groupCodePattern = regexp.MustCompile(`^[A-Z0-9]{6}$`)

// NormalizeEmail lower-cases and trims an email address
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateEmail reports whether email is a bare address with no display name
func ValidateEmail(email string) bool {
	email = strings.TrimSpace(email)
	if email == "" {
		return false
	}
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}

// ValidatePassword checks the minimum password length
func ValidatePassword(password string) bool {
	return len(password) >= MinPasswordLength
}

// NormalizeName trims a display name. An empty result means "missing".
func NormalizeName(name string) string {
	return strings.TrimSpace(name)
}

// CanonicalGroupCode returns the upper-cased, trimmed form of a pairing code
func CanonicalGroupCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ValidGroupCode reports whether code is a canonical six character pairing
// code made of A-Z and 0-9
func ValidGroupCode(code string) bool {
	return groupCodePattern.MatchString(code)
}

// ValidCoordinates reports whether lat and lon are finite and in WGS84 range
func ValidCoordinates(lat, lon float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lon) {
		return false
	}
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

// ValidHistoryPeriod reports whether hours is one of HistoryPeriods
func ValidHistoryPeriod(hours int) bool {
	for _, h := range HistoryPeriods {
		if h == hours {
			return true
		}
	}
	return false
}

// TrimAndLimit trims s and caps it at max bytes without splitting a
// multi-byte character. A max of zero or less means no cap.
func TrimAndLimit(s string, max int) string {
	s = strings.TrimSpace(s)
	if max <= 0 || len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
