package domain

import (
	"cmp"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// YearMonth identifies a calendar month.
type YearMonth struct {
	Year  int
	Month time.Month
}

// MonthOf returns the calendar month containing t.
func MonthOf(t time.Time) YearMonth {
	return YearMonth{Year: t.Year(), Month: t.Month()}
}

// String formats the month as YYYY-MM.
func (ym YearMonth) String() string {
	return fmt.Sprintf("%04d-%02d", ym.Year, int(ym.Month))
}

// Compare orders months chronologically.
func (ym YearMonth) Compare(other YearMonth) int {
	if c := cmp.Compare(ym.Year, other.Year); c != 0 {
		return c
	}
	return cmp.Compare(ym.Month, other.Month)
}

// IsZero reports whether ym is the zero value.
func (ym YearMonth) IsZero() bool {
	return ym.Year == 0 && ym.Month == 0
}

// WaterYear returns the water year the month belongs to.
func (ym YearMonth) WaterYear() int {
	if ym.Month >= time.October {
		return ym.Year + 1
	}
	return ym.Year
}

// ParseYearMonth parses "YYYY-MM" (a single-digit month is accepted).
func ParseYearMonth(s string) (YearMonth, error) {
	year, month, ok := strings.Cut(strings.TrimSpace(s), "-")
	if !ok {
		return YearMonth{}, fmt.Errorf("parse year-month %q: missing separator", s)
	}
	y, err := strconv.Atoi(year)
	if err != nil {
		return YearMonth{}, fmt.Errorf("parse year-month %q: %w", s, err)
	}
	m, err := strconv.Atoi(month)
	if err != nil {
		return YearMonth{}, fmt.Errorf("parse year-month %q: %w", s, err)
	}
	if m < 1 || m > 12 {
		return YearMonth{}, fmt.Errorf("parse year-month %q: month out of range", s)
	}
	return YearMonth{Year: y, Month: time.Month(m)}, nil
}

// WaterYearMonth maps a month column of a water-year report to its calendar month.
func WaterYearMonth(waterYear int, m time.Month) YearMonth {
	if m >= time.October {
		return YearMonth{Year: waterYear - 1, Month: m}
	}
	return YearMonth{Year: waterYear, Month: m}
}

// CurrentWaterYear returns the water year of the package clock's current time.
func CurrentWaterYear() int {
	return MonthOf(clock.Now()).WaterYear()
}

// WaterYearsBetween lists the water years covering the months from..to inclusive.
func WaterYearsBetween(from, to YearMonth) []int {
	if to.Compare(from) < 0 {
		return nil
	}
	first, last := from.WaterYear(), to.WaterYear()
	years := make([]int, 0, last-first+1)
	for y := first; y <= last; y++ {
		years = append(years, y)
	}
	return years
}

// MarshalText encodes the month as YYYY-MM.
func (ym YearMonth) MarshalText() ([]byte, error) {
	return []byte(ym.String()), nil
}

// UnmarshalText decodes YYYY-MM.
func (ym *YearMonth) UnmarshalText(b []byte) error {
	parsed, err := ParseYearMonth(string(b))
	if err != nil {
		return err
	}
	*ym = parsed
	return nil
}
