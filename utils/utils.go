package utils

import (
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
)

var ErrMonthOutOfRange = errors.New("month number out of range 1-12")

var monthNames = [...]string{
	"January", "February", "March", "April", "May", "June",
	"July", "August", "September", "October", "November", "December",
}

// MonthName returns the English name of a 1-based month number
func MonthName(month int) (string, error) {
	if month < 1 || month > 12 {
		return "", fmt.Errorf("%w: %d", ErrMonthOutOfRange, month)
	}

	return monthNames[month-1], nil
}

// Convert month days to contain ordinal indicators
func Ordinal(n int) string {
	suffix := "th"

	// 11th, 12th, 13th... never take the ones digit suffix
	if (n/10)%10 != 1 {
		switch n % 10 {
		case 1:
			suffix = "st"
		case 2:
			suffix = "nd"
		case 3:
			suffix = "rd"
		}
	}

	return fmt.Sprintf("%v%s", n, suffix)
}

// FormatBirthday renders a month/day pair the way replies show it, e.g. "June 15th".
func FormatBirthday(month, day int) (string, error) {
	name, err := MonthName(month)
	if err != nil {
		return "", err
	}

	return name + " " + Ordinal(day), nil
}

// NewInvocationID returns a ULID used to correlate the log lines of one scan or callback.
func NewInvocationID() string {
	entropy := ulid.Monotonic(rand.Reader, 0)

	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}
