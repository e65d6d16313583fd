// Package clock provides the process clock and timezone capability used by
// time reconciliation. The core logic never touches ambient global state
// directly; it goes through the Clock interface so tests can substitute a
// recording fake.
package clock

import (
	"fmt"
	"os"
	"time"

	"golang.org/x/sys/unix"
)

// Clock is the process-wide clock and timezone surface.
type Clock interface {
	// Now returns the current process time.
	Now() time.Time
	// SetTime sets the process clock to unixSec seconds plus a
	// microsecond-level correction.
	SetTime(unixSec int64, usCorrection int64) error
	// ReadLocalTime waits up to timeout for the local clock to report a
	// plausible time. Purely a best-effort confirmation.
	ReadLocalTime(timeout time.Duration) bool
	// Timezone and SetTimezone get and set the process-wide timezone name,
	// keyed by a single environment-like string.
	Timezone() string
	SetTimezone(name string) error
}

// SystemClock implements Clock against the host: settimeofday for the clock
// and the TZ environment variable for the zone name.
type SystemClock struct{}

func NewSystemClock() *SystemClock {
	return &SystemClock{}
}

func (c *SystemClock) Now() time.Time {
	return time.Now()
}

func (c *SystemClock) SetTime(unixSec int64, usCorrection int64) error {
	tv := unix.Timeval{Sec: unixSec, Usec: usCorrection}
	if err := unix.Settimeofday(&tv); err != nil {
		return fmt.Errorf("settimeofday: %w", err)
	}
	return nil
}

// likeValidTime is 2021-01-01T00:00:00Z. Anything earlier is assumed to be
// an unsynchronized epoch-default clock.
const likeValidTime = 1609459200

func (c *SystemClock) ReadLocalTime(timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for {
		if time.Now().Unix() > likeValidTime {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func (c *SystemClock) Timezone() string {
	return os.Getenv("TZ")
}

func (c *SystemClock) SetTimezone(name string) error {
	if err := os.Setenv("TZ", name); err != nil {
		return fmt.Errorf("set TZ: %w", err)
	}
	return nil
}
