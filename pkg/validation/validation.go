package validation

import (
	"regexp"
	"strings"
	"time"
)

var (
	emailRegex      = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	postalCodeRegex = regexp.MustCompile(`^[0-9]{5}$`)
)

// PasswordSymbols is the fixed set of symbols a password must draw from
const PasswordSymbols = "!@#$%^&*()-_+="

// IsValidEmail validates email format
func IsValidEmail(email string) bool {
	return emailRegex.MatchString(strings.TrimSpace(email))
}

// IsValidPostalCode validates a 5-digit US postal code
func IsValidPostalCode(code string) bool {
	return postalCodeRegex.MatchString(code)
}

// IsValidPassword validates password complexity: 6-11 characters,
// at least one digit, and at least one symbol from the fixed set
func IsValidPassword(password string) bool {
	if len(password) < 6 || len(password) > 11 {
		return false
	}
	hasDigit := strings.ContainsAny(password, "0123456789")
	hasSymbol := strings.ContainsAny(password, PasswordSymbols)
	return hasDigit && hasSymbol
}

// IsValidReportTime checks that the input parses as a 24-hour time,
// either compact "1504" or colon-separated "15:04"
func IsValidReportTime(reportTime string) bool {
	_, ok := NormalizeReportTime(reportTime)
	return ok
}

// NormalizeReportTime converts "1504" or "15:04" to canonical "15:04"
func NormalizeReportTime(reportTime string) (string, bool) {
	if t, err := time.Parse("1504", reportTime); err == nil {
		return t.Format("15:04"), true
	}
	if t, err := time.Parse("15:04", reportTime); err == nil {
		return t.Format("15:04"), true
	}
	return "", false
}

// IsValidFrequency validates the report frequency in minutes.
// Unset means no periodic report; otherwise it must be in [5,60]
// and a multiple of 5.
func IsValidFrequency(frequency *int) bool {
	if frequency == nil {
		return true
	}
	f := *frequency
	return f >= 5 && f <= 60 && f%5 == 0
}
