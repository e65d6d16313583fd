// Package httpdate parses the RFC-1123-style timestamps carried by HTTP
// Date headers, such as "Mon, 25 Dec 2023 14:30:45 GMT".
package httpdate

import (
	"fmt"
	"time"
)

var months = [12]string{
	"Jan", "Feb", "Mar", "Apr", "May", "Jun",
	"Jul", "Aug", "Sep", "Oct", "Nov", "Dec",
}

// Parse scans value with fixed-width matching: a day-of-week token is
// skipped, then day, month name, year and hh:mm:ss must all be present.
// Anything that does not yield exactly those components, or a month name
// outside the table, is rejected.
func Parse(value string) (time.Time, error) {
	var (
		dow      string
		day      int
		monthStr string
		year     int
		hour     int
		min      int
		sec      int
	)
	n, err := fmt.Sscanf(value, "%3s, %d %3s %d %d:%d:%d",
		&dow, &day, &monthStr, &year, &hour, &min, &sec)
	if err != nil || n != 7 {
		return time.Time{}, fmt.Errorf("malformed HTTP date %q", value)
	}

	month := 0
	for i, m := range months {
		if monthStr == m {
			month = i + 1
			break
		}
	}
	if month == 0 {
		return time.Time{}, fmt.Errorf("unknown month %q in HTTP date", monthStr)
	}

	return time.Date(year, time.Month(month), day, hour, min, sec, 0, time.UTC), nil
}
