// Package format converts profile fields between the display form shown to
// Brazilian shoppers and the wire form the backend stores.
//
// Every function here is pure and total: any input yields a value, and
// applying a display formatter to its own output returns it unchanged.
package format

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/boddenberg/artfy-client-go/internal/domain"
)

const (
	cpfDigits   = 11
	phoneDigits = 11
	dateDigits  = 8

	isoDate     = "2006-01-02"
	displayDate = "02/01/2006"
)

// Digits drops every non-digit rune.
func Digits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func digitsUpTo(s string, n int) string {
	d := Digits(s)
	if len(d) > n {
		d = d[:n]
	}
	return d
}

// CPF groups up to 11 digits as NNN.NNN.NNN-NN, leaving partial input partially grouped.
func CPF(raw string) string {
	d := digitsUpTo(raw, cpfDigits)

	var b strings.Builder
	for i := 0; i < len(d); i++ {
		switch i {
		case 3, 6:
			b.WriteByte('.')
		case 9:
			b.WriteByte('-')
		}
		b.WriteByte(d[i])
	}
	return b.String()
}

// Phone groups up to 11 digits as (NN) NNNNN-NNNN. Input with no digits yields "".
func Phone(raw string) string {
	d := digitsUpTo(raw, phoneDigits)
	switch {
	case d == "":
		return ""
	case len(d) <= 2:
		return "(" + d
	case len(d) <= 7:
		return "(" + d[:2] + ") " + d[2:]
	default:
		return "(" + d[:2] + ") " + d[2:7] + "-" + d[7:]
	}
}

// Date groups up to 8 digits as DD/MM/YYYY.
func Date(raw string) string {
	d := digitsUpTo(raw, dateDigits)

	var b strings.Builder
	for i := 0; i < len(d); i++ {
		if i == 2 || i == 4 {
			b.WriteByte('/')
		}
		b.WriteByte(d[i])
	}
	return b.String()
}

// Field applies the formatter that belongs to a profile field.
// Fields without a mask are returned as typed.
func Field(field, raw string) string {
	switch field {
	case domain.FieldCPF:
		return CPF(raw)
	case domain.FieldPhone:
		return Phone(raw)
	case domain.FieldBirthDate:
		return Date(raw)
	default:
		return raw
	}
}

// DateToDisplay turns an ISO date (or an RFC 3339 timestamp) into DD/MM/YYYY.
// Only the calendar date is used, so no timezone shift can move the day.
// Unparseable input yields "".
func DateToDisplay(iso string) string {
	iso = strings.TrimSpace(iso)
	if len(iso) > len(isoDate) {
		iso = iso[:len(isoDate)]
	}
	t, err := time.Parse(isoDate, iso)
	if err != nil {
		return ""
	}
	return t.Format(displayDate)
}

// DateInput prepares a typed birth date for validation. Exactly eight digits
// become DD/MM/YYYY; anything else is only trimmed, so over-long or
// malformed input still fails the date pattern.
func DateInput(raw string) string {
	raw = strings.TrimSpace(raw)
	if len(raw) == dateDigits && Digits(raw) == raw {
		return Date(raw)
	}
	return raw
}

// DateToWire reorders a DD/MM/YYYY date to YYYY-MM-DD. Input that does not
// have three slash-separated parts yields "".
func DateToWire(display string) string {
	parts := strings.Split(strings.TrimSpace(display), "/")
	if len(parts) != 3 {
		return ""
	}
	day, month, year := parts[0], parts[1], parts[2]
	return year + "-" + leftPad(month) + "-" + leftPad(day)
}

func leftPad(s string) string {
	if len(s) == 1 {
		return "0" + s
	}
	return s
}

// ToDisplay converts a wire-form profile into the form shown for editing.
func ToDisplay(u domain.UserProfile) domain.ProfileForm {
	return domain.ProfileForm{
		Name:      u.Name,
		Email:     u.Email,
		CPF:       CPF(u.CPF),
		BirthDate: DateToDisplay(u.BirthDate),
		Phone:     Phone(u.Phone),
		Address:   u.Address,
	}
}

// ToWire converts a display-form profile into the backend representation.
// The id is carried over from base.
func ToWire(f domain.ProfileForm, base domain.UserProfile) domain.UserProfile {
	return domain.UserProfile{
		ID:        base.ID,
		Name:      strings.TrimSpace(f.Name),
		Email:     strings.TrimSpace(f.Email),
		CPF:       Digits(f.CPF),
		BirthDate: DateToWire(f.BirthDate),
		Phone:     Digits(f.Phone),
		Address:   strings.TrimSpace(f.Address),
	}
}

// Money renders an amount in reais, rounded to two places: R$ 1.234,50.
func Money(amount decimal.Decimal) string {
	fixed := amount.StringFixed(2)

	sign := ""
	if strings.HasPrefix(fixed, "-") {
		sign, fixed = "-", fixed[1:]
	}
	whole, cents, _ := strings.Cut(fixed, ".")

	var b strings.Builder
	for i := range len(whole) {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteByte(whole[i])
	}
	return sign + "R$ " + b.String() + "," + cents
}
