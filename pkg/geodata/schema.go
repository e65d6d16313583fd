package geodata

import "strings"

// FieldKind selects the conversion rule applied to a response body line.
type FieldKind int

const (
	// KindStatus is the success check: the line must equal StatusSuccess.
	KindStatus FieldKind = iota
	// KindString copies the line, truncated to the field's MaxLen.
	KindString
	// KindFloat parses a locale-independent decimal float.
	KindFloat
	// KindInt parses a locale-independent decimal integer.
	KindInt
)

// StatusSuccess is the literal the status field must carry for the response
// to be accepted.
const StatusSuccess = "success"

// Field is one slot of the fixed response schema.
type Field struct {
	Name   string
	Kind   FieldKind
	MaxLen int
}

// Schema is the ordered list of body lines the line endpoint returns, one
// value per line, in this exact order. It is fixed and known ahead of time.
var Schema = []Field{
	{Name: "status", Kind: KindStatus},
	{Name: "country", Kind: KindString, MaxLen: MaxCountryLen},
	{Name: "city", Kind: KindString, MaxLen: MaxCityLen},
	{Name: "lat", Kind: KindFloat},
	{Name: "lon", Kind: KindFloat},
	{Name: "timezone", Kind: KindString, MaxLen: MaxTimezoneLen},
	{Name: "offset", Kind: KindInt},
	{Name: "query", Kind: KindString, MaxLen: MaxIPLen},
}

// QueryFields returns the comma-joined field list for the request URL, in
// schema order.
func QueryFields() string {
	names := make([]string, len(Schema))
	for i, f := range Schema {
		names[i] = f.Name
	}
	return strings.Join(names, ",")
}
