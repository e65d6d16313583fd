package geodata

import "testing"

func TestTimeZoneValid(t *testing.T) {
	tests := []struct {
		name string
		tz   TimeZone
		want bool
	}{
		{"zero value is unset", TimeZone{}, false},
		{"name only", TimeZone{Name: "Europe/London"}, true},
		{"offset only", TimeZone{OffsetSeconds: 3600}, true},
		{"negative offset only", TimeZone{OffsetSeconds: -10800}, true},
		{"both", TimeZone{Name: "Europe/Rome", OffsetSeconds: 3600}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.tz.Valid(); got != tt.want {
				t.Errorf("Valid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("short", 10); got != "short" {
		t.Errorf("Truncate(short, 10) = %q", got)
	}
	if got := Truncate("exactly-ten", 11); got != "exactly-ten" {
		t.Errorf("Truncate at boundary = %q", got)
	}
	if got := Truncate("this is far too long", 7); got != "this is" {
		t.Errorf("Truncate(long, 7) = %q", got)
	}
}

func TestQueryFields(t *testing.T) {
	want := "status,country,city,lat,lon,timezone,offset,query"
	if got := QueryFields(); got != want {
		t.Errorf("QueryFields() = %q, want %q", got, want)
	}
}

func TestSchemaShape(t *testing.T) {
	if len(Schema) != 8 {
		t.Fatalf("schema length = %d, want 8", len(Schema))
	}
	if Schema[0].Kind != KindStatus {
		t.Error("first field is not the status check")
	}
	for _, f := range Schema {
		if f.Kind == KindString && f.MaxLen == 0 {
			t.Errorf("string field %q has no width bound", f.Name)
		}
	}
}
