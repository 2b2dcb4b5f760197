package booking

import (
	"math"
	"strings"
	"time"

	"github.com/your-org/storefront-backend/internal/pkg/apperror"
)

// DateLayout is the wire format of stay dates
const DateLayout = "2006-01-02"

// Range is a half-open interval [Start, End)
type Range struct {
	Start time.Time
	End   time.Time
}

// Overlaps uses half-open semantics: a stay ending on day N does not
// overlap one starting on day N.
func Overlaps(a, b Range) bool {
	return a.Start.Before(b.End) && b.Start.Before(a.End)
}

// CalculateNights rounds a partial day up and rejects empty or inverted stays
func CalculateNights(checkIn, checkOut time.Time) (int, error) {
	hours := checkOut.Sub(checkIn).Hours()
	nights := int(math.Ceil(hours / 24))
	if nights < 1 {
		return 0, apperror.Validation("check-out must be after check-in")
	}
	return nights, nil
}

// ParseDate reads a YYYY-MM-DD date as midnight UTC
func ParseDate(field, value string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, apperror.Validationf("%s must be a date in YYYY-MM-DD format", field)
	}
	return t, nil
}

// ParseStay parses and validates check-in and check-out dates
func ParseStay(checkIn, checkOut string) (Range, int, error) {
	start, err := ParseDate("check_in", checkIn)
	if err != nil {
		return Range{}, 0, err
	}
	end, err := ParseDate("check_out", checkOut)
	if err != nil {
		return Range{}, 0, err
	}
	nights, err := CalculateNights(start, end)
	if err != nil {
		return Range{}, 0, err
	}
	return Range{Start: start, End: end}, nights, nil
}
