// Package identity derives the join key used to recognise the same person
// across the payments, subscriptions, deleted and form-agreement record sets.
//
// None of the record sets share a primary key, so matching is done solely on
// a normalized (email, phone) pair. Every record set must go through the same
// functions here before comparison.
package identity

import (
	"encoding/json"
	"strconv"
	"strings"
)

// canonicalPhoneDigits is the length of a national mobile number. Longer
// digit strings keep only their trailing digits, which drops country codes
// such as 91 and trunk zeros.
const canonicalPhoneDigits = 10

// Key is the derived identity of a record: normalized email, "|", normalized phone.
type Key string

// NormalizeEmail lower-cases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(email)
}

// NormalizePhone strips everything but digits and keeps at most the last
// ten of them. No validation is performed; junk input yields a best-effort
// value rather than an error.
func NormalizePhone(phone string) string {
	var b strings.Builder
	b.Grow(len(phone))
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) <= canonicalPhoneDigits {
		return digits
	}
	return digits[len(digits)-canonicalPhoneDigits:]
}

// MakeKey builds the identity key for an email and phone.
func MakeKey(email, phone string) Key {
	return Key(NormalizeEmail(email) + "|" + NormalizePhone(phone))
}

// KeyOf is MakeKey for nullable columns; nil is the empty component.
func KeyOf(email, phone *string) Key {
	return MakeKey(deref(email), deref(phone))
}

// PhoneString renders a loosely typed phone value (text, integer, float or
// json.Number as found in exported rows) as text. nil yields "".
func PhoneString(v any) string {
	switch p := v.(type) {
	case nil:
		return ""
	case string:
		return p
	case *string:
		return deref(p)
	case json.Number:
		return p.String()
	case int:
		return strconv.Itoa(p)
	case int64:
		return strconv.FormatInt(p, 10)
	case float64:
		return strconv.FormatFloat(p, 'f', -1, 64)
	default:
		return ""
	}
}

// FormatPhone renders a phone for display: 91-prefixed ten digit numbers
// become "+91 98765 43210", anything else is returned as stored, "-" when empty.
func FormatPhone(phone string) string {
	if phone == "" {
		return "-"
	}
	if !strings.HasPrefix(phone, "91") && !strings.HasPrefix(phone, "+91") {
		return phone
	}
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	switch {
	case len(digits) == 12 && strings.HasPrefix(digits, "91"):
		digits = digits[2:]
	case len(digits) != 10:
		return phone
	}
	return "+91 " + digits[:5] + " " + digits[5:]
}

// DisplayPhone is FormatPhone for a nullable phone.
func DisplayPhone(phone *string) string {
	return FormatPhone(deref(phone))
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
