package clock

import (
	"testing"
	"time"

	"geolocation-client/pkg/geodata"
)

// fakeClock records every clock and timezone mutation.
type fakeClock struct {
	now       time.Time
	setCalls  []setCall
	zoneCalls []string
	readbacks int
}

type setCall struct {
	unixSec      int64
	usCorrection int64
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) SetTime(unixSec int64, usCorrection int64) error {
	c.setCalls = append(c.setCalls, setCall{unixSec, usCorrection})
	c.now = time.Unix(unixSec, usCorrection*1000)
	return nil
}

func (c *fakeClock) ReadLocalTime(timeout time.Duration) bool {
	c.readbacks++
	return true
}

func (c *fakeClock) Timezone() string { return "" }

func (c *fakeClock) SetTimezone(name string) error {
	c.zoneCalls = append(c.zoneCalls, name)
	return nil
}

func TestApplyZoneUnsetIsIgnored(t *testing.T) {
	clk := &fakeClock{now: time.Unix(1700000000, 0)}
	r := NewReconciler(clk, nil)

	r.ApplyZone(geodata.TimeZone{})

	if len(clk.zoneCalls) != 0 || len(clk.setCalls) != 0 {
		t.Fatalf("unset zone mutated the clock: zones=%v sets=%v", clk.zoneCalls, clk.setCalls)
	}
	if _, ok := r.ActiveOffset(); ok {
		t.Error("ActiveOffset() reports applied after unset zone")
	}
}

func TestApplyZoneFirstConfiguration(t *testing.T) {
	clk := &fakeClock{now: time.Unix(1700000000, 0)}
	r := NewReconciler(clk, nil)

	r.ApplyZone(geodata.TimeZone{Name: "Europe/Rome", OffsetSeconds: 3600})

	// Environment representation carries the negated semantic offset.
	if len(clk.zoneCalls) != 1 || clk.zoneCalls[0] != "UTC-1" {
		t.Fatalf("zone calls = %v, want [UTC-1]", clk.zoneCalls)
	}
	// First configuration never rewrites the clock.
	if len(clk.setCalls) != 0 {
		t.Errorf("set calls = %v, want none on first configuration", clk.setCalls)
	}
	if off, ok := r.ActiveOffset(); !ok || off != 3600 {
		t.Errorf("ActiveOffset() = (%d, %v), want (3600, true)", off, ok)
	}
	if clk.readbacks != 1 {
		t.Errorf("readbacks = %d, want 1", clk.readbacks)
	}
}

func TestApplyZoneSameOffsetTwice(t *testing.T) {
	clk := &fakeClock{now: time.Unix(1700000000, 0)}
	r := NewReconciler(clk, nil)

	r.ApplyZone(geodata.TimeZone{Name: "Europe/Rome", OffsetSeconds: 3600})
	r.ApplyZone(geodata.TimeZone{Name: "Europe/Paris", OffsetSeconds: 3600})

	if len(clk.zoneCalls) != 1 {
		t.Fatalf("zone calls = %v, want exactly one configuration", clk.zoneCalls)
	}
	if len(clk.setCalls) != 0 {
		t.Errorf("set calls = %v, want none", clk.setCalls)
	}
}

func TestApplyZoneOffsetChangeCapturesUTCInstant(t *testing.T) {
	clk := &fakeClock{now: time.Unix(1700003600, 0)}
	r := NewReconciler(clk, nil)

	r.ApplyZone(geodata.TimeZone{Name: "Europe/Rome", OffsetSeconds: 3600})
	r.ApplyZone(geodata.TimeZone{Name: "Asia/Tehran", OffsetSeconds: 12600})

	if len(clk.zoneCalls) != 2 || clk.zoneCalls[1] != "UTC-3:30:00" {
		t.Fatalf("zone calls = %v, want second to be UTC-3:30:00", clk.zoneCalls)
	}

	// Exactly one capture-and-reapply: local 1700003600 under the old +3600
	// offset is UTC 1700000000, reapplied under the new +12600 offset.
	if len(clk.setCalls) != 1 {
		t.Fatalf("set calls = %v, want exactly one reapply", clk.setCalls)
	}
	wantLocal := int64(1700000000 + 12600)
	if clk.setCalls[0].unixSec != wantLocal {
		t.Errorf("reapplied time = %d, want %d", clk.setCalls[0].unixSec, wantLocal)
	}

	if off, ok := r.ActiveOffset(); !ok || off != 12600 {
		t.Errorf("ActiveOffset() = (%d, %v), want (12600, true)", off, ok)
	}
}

func TestApplyZoneNegativeOffsetInvertsSign(t *testing.T) {
	clk := &fakeClock{now: time.Unix(1700000000, 0)}
	r := NewReconciler(clk, nil)

	r.ApplyZone(geodata.TimeZone{Name: "America/Sao_Paulo", OffsetSeconds: -10800})

	if len(clk.zoneCalls) != 1 || clk.zoneCalls[0] != "UTC3" {
		t.Fatalf("zone calls = %v, want [UTC3]", clk.zoneCalls)
	}
}

func TestSetSystemTimeShiftsByActiveOffset(t *testing.T) {
	clk := &fakeClock{now: time.Unix(1700000000, 0)}
	r := NewReconciler(clk, nil)

	r.SetSystemTime(1700000000, 900000)
	if len(clk.setCalls) != 1 || clk.setCalls[0].unixSec != 1700000000 {
		t.Fatalf("set calls = %v, want unshifted time before any offset", clk.setCalls)
	}
	if clk.setCalls[0].usCorrection != 900000 {
		t.Errorf("correction = %d, want 900000", clk.setCalls[0].usCorrection)
	}

	r.ApplyZone(geodata.TimeZone{Name: "Europe/Rome", OffsetSeconds: 3600})
	r.SetSystemTime(1700000000, 0)
	last := clk.setCalls[len(clk.setCalls)-1]
	if last.unixSec != 1700000000+3600 {
		t.Errorf("shifted time = %d, want %d", last.unixSec, 1700000000+3600)
	}
}

func TestFormatOffset(t *testing.T) {
	tests := []struct {
		offset int
		want   string
	}{
		{0, "UTC0"},
		{3600, "UTC1"},
		{-3600, "UTC-1"},
		{7200, "UTC2"},
		{12600, "UTC3:30:00"},
		{-12600, "UTC-3:30:00"},
		{20700, "UTC5:45:00"},
	}

	for _, tt := range tests {
		if got := FormatOffset(tt.offset); got != tt.want {
			t.Errorf("FormatOffset(%d) = %q, want %q", tt.offset, got, tt.want)
		}
	}
}
