package clock

import (
	"fmt"
	"log/slog"
	"math"
	"time"

	"geolocation-client/pkg/geodata"
)

// offsetUnset marks that no UTC offset has been applied to the host clock
// yet. The active offset models host state, so it persists across request
// sessions.
const offsetUnset = math.MaxInt32

// readbackWait bounds the best-effort local-time confirmation after a
// timezone reconfiguration.
const readbackWait = 5 * time.Second

// Reconciler decides whether and how to update the process clock and the
// active timezone. All failures here are best-effort: they are logged and
// swallowed, never surfaced to the request session.
type Reconciler struct {
	clk    Clock
	logger *slog.Logger

	activeOffset int
}

func NewReconciler(clk Clock, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{
		clk:          clk,
		logger:       logger,
		activeOffset: offsetUnset,
	}
}

// ActiveOffset returns the semantic UTC offset currently reflected in host
// clock state, and whether one has been applied at all.
func (r *Reconciler) ActiveOffset() (int, bool) {
	return r.activeOffset, r.activeOffset != offsetUnset
}

// SetSystemTime sets the process clock to the given UTC instant, shifted by
// the active offset when one is applied. Both reconciliation triggers
// (header-derived time and offset reconfiguration) funnel through here.
func (r *Reconciler) SetSystemTime(unixSec int64, usCorrection int64) {
	if r.activeOffset != offsetUnset {
		r.logger.Debug("correcting unix time to local offset", "offset", r.activeOffset)
		unixSec += int64(r.activeOffset)
	}
	if err := r.clk.SetTime(unixSec, usCorrection); err != nil {
		r.logger.Debug("failed to set process time", "error", err)
	}
}

// ApplyZone reconfigures the active offset and the process timezone from a
// parsed zone. It does nothing for an unset zone or for an offset that is
// already active and unchanged. When a previously applied offset changes,
// the current UTC instant is captured first and reapplied under the new
// offset so the clock does not drift by the delta.
func (r *Reconciler) ApplyZone(tz geodata.TimeZone) {
	if !tz.Valid() {
		return
	}

	hasActive := r.activeOffset != offsetUnset
	changed := r.activeOffset != tz.OffsetSeconds

	if hasActive && !changed {
		r.logger.Debug("timezone already configured", "offset", r.activeOffset)
		return
	}

	verb := "configure"
	if hasActive {
		verb = "reconfigure"
	}
	r.logger.Info(verb+" time offset", "zone", tz.Name, "offset", tz.OffsetSeconds)

	var capturedUTC int64
	if hasActive && changed {
		capturedUTC = r.clk.Now().Unix() - int64(r.activeOffset)
	}

	r.activeOffset = tz.OffsetSeconds
	// The environment string follows the subtract-to-get-local convention:
	// it carries the negated semantic offset.
	if err := r.clk.SetTimezone(FormatOffset(-tz.OffsetSeconds)); err != nil {
		r.logger.Debug("failed to set timezone", "error", err)
	}

	if hasActive && changed {
		r.SetSystemTime(capturedUTC, 0)
	}

	if !r.clk.ReadLocalTime(readbackWait) {
		r.logger.Debug("local time readback did not confirm")
	}
}

// FormatOffset renders an offset in seconds as the environment timezone
// string: "UTC<h>" for whole hours, "UTC<h>:<mm>:<ss>" otherwise.
func FormatOffset(offset int) string {
	if offset%3600 != 0 {
		return fmt.Sprintf("UTC%d:%02d:%02d",
			offset/3600,
			abs((offset%3600)/60),
			abs(offset%60))
	}
	return fmt.Sprintf("UTC%d", offset/3600)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
