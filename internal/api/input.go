package api

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseAges reads a space- or comma-separated age list as agents type
// it into the booking mask, e.g. "45 48" or "45, 48, 12".
func ParseAges(s string) ([]int, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == ',' || r == ';'
	})
	if len(fields) == 0 {
		return nil, fmt.Errorf("no ages given")
	}

	ages := make([]int, 0, len(fields))
	for _, f := range fields {
		age, err := strconv.Atoi(f)
		if err != nil {
			return nil, fmt.Errorf("invalid age %q", f)
		}
		ages = append(ages, age)
	}
	return ages, nil
}

// ParseDate reads travel dates in the shorthand formats the booking
// mask accepts: "0107" (day+month, current year), "010726" and
// "01072026" (digits only), and dotted "01.07.2026", "1.7.2026" or
// "01.07." (current year).
func ParseDate(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("date is required")
	}

	if strings.Contains(s, ".") {
		return parseDottedDate(s, now)
	}
	return parseDigitDate(s, now)
}

func parseDottedDate(s string, now time.Time) (time.Time, error) {
	// "01.07." means the current year
	if strings.HasSuffix(s, ".") && strings.Count(s, ".") == 2 {
		s = s + strconv.Itoa(now.Year())
	}

	for _, layout := range []string{"02.01.2006", "2.1.2006", "02.01.06", "2.1.06"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

func parseDigitDate(s string, now time.Time) (time.Time, error) {
	switch len(s) {
	case 4: // TTMM
		t, err := time.Parse("02012006", s+strconv.Itoa(now.Year()))
		if err != nil {
			return time.Time{}, fmt.Errorf("unrecognized date %q", s)
		}
		return t, nil
	case 6: // TTMMJJ
		t, err := time.Parse("020106", s)
		if err != nil {
			return time.Time{}, fmt.Errorf("unrecognized date %q", s)
		}
		return t, nil
	case 8: // TTMMJJJJ
		t, err := time.Parse("02012006", s)
		if err != nil {
			return time.Time{}, fmt.Errorf("unrecognized date %q", s)
		}
		return t, nil
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

// ParsePrice reads a trip price, accepting both "2000.50" and the
// German "2000,50".
func ParsePrice(s string) (float64, error) {
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "€"))
	if strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	}
	price, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid price %q", s)
	}
	return price, nil
}
