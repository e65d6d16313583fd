package geolocation

import (
	"strconv"

	"geolocation-client/pkg/geodata"
)

// assignField applies the schema's conversion rule for the body line at the
// given ordinal index, staging the value into the session's temporary
// result. It reports false for a hard field failure: an empty line, an
// index beyond the schema, or a status line that is not the success
// sentinel. Unparsable numeric text stages a zero instead of failing.
func (d *Driver) assignField(line string, index int) bool {
	if line == "" {
		return false
	}
	if index < 0 || index >= len(geodata.Schema) {
		return false
	}

	field := geodata.Schema[index]
	switch field.Kind {
	case geodata.KindStatus:
		if line != geodata.StatusSuccess {
			d.logger.Debug("response status not successful",
				"session", d.sessionID, "status", line)
			return false
		}
		return true

	case geodata.KindString:
		d.stageString(field.Name, geodata.Truncate(line, field.MaxLen))
		return true

	case geodata.KindFloat:
		v, err := strconv.ParseFloat(line, 64)
		if err != nil {
			v = 0
		}
		d.stageFloat(field.Name, v)
		return true

	case geodata.KindInt:
		v, err := strconv.Atoi(line)
		if err != nil {
			v = 0
		}
		d.stageInt(field.Name, v)
		return true
	}
	return false
}

func (d *Driver) stageString(name, value string) {
	switch name {
	case "country":
		d.staging.Country = value
	case "city":
		d.staging.City = value
	case "timezone":
		d.staging.TimeZone.Name = value
	case "query":
		d.staging.IP = value
	}
}

func (d *Driver) stageFloat(name string, value float64) {
	switch name {
	case "lat":
		d.staging.Latitude = value
	case "lon":
		d.staging.Longitude = value
	}
}

func (d *Driver) stageInt(name string, value int) {
	switch name {
	case "offset":
		d.staging.TimeZone.OffsetSeconds = value
	}
}
