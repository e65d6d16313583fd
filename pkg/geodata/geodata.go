package geodata

import "fmt"

// Maximum stored widths for string fields, in bytes. Longer values are
// truncated, never an error.
const (
	MaxIPLen       = 15
	MaxCountryLen  = 31
	MaxCityLen     = 63
	MaxTimezoneLen = 47
)

// TimeZone is an IANA zone name paired with its UTC offset. The zero value
// (empty name, zero offset) is the "unset" representation.
type TimeZone struct {
	Name          string
	OffsetSeconds int
}

// Valid reports whether the zone carries any information. A zero offset with
// an empty name is treated as unset, not as UTC.
func (tz TimeZone) Valid() bool {
	return tz.Name != "" || tz.OffsetSeconds != 0
}

func (tz TimeZone) String() string {
	return fmt.Sprintf("%s (UTC%+d)", tz.Name, tz.OffsetSeconds/3600)
}

// Result holds the geolocation data for one completed request. It is
// produced exactly once per successful session and never mutated after
// delivery.
type Result struct {
	IP        string
	Country   string
	City      string
	Latitude  float64
	Longitude float64
	TimeZone  TimeZone
	Valid     bool
}

func (r Result) String() string {
	return fmt.Sprintf("IP: %s\nCountry: %s\nCity: %s\nTimezone: %s\nUTC Offset: %d sec (%+.1f hrs)\nLocation: %.4f, %.4f",
		r.IP, r.Country, r.City, r.TimeZone.Name,
		r.TimeZone.OffsetSeconds, float64(r.TimeZone.OffsetSeconds)/3600.0,
		r.Latitude, r.Longitude)
}

// Truncate bounds s to at most max bytes. Truncation is explicit here so no
// field can silently overflow its stored width.
func Truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
