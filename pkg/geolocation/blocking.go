package geolocation

import (
	"time"

	"geolocation-client/pkg/geodata"
)

// GetLocation is the blocking convenience wrapper around Begin/Tick. It
// detaches the observers for the duration, spins the driver with light
// pacing until the session reaches a terminal state, and enforces its own
// wall-clock deadline as a backstop in case the driver's deadline logic is
// bypassed by clock anomalies. On success the saved completion observer is
// invoked once with the result.
func (d *Driver) GetLocation(autoSetTime bool, language string, timeout time.Duration) (geodata.Result, bool) {
	if d.IsRunning() {
		return geodata.Result{}, false
	}

	savedTimeout := d.timeout
	savedProgress := d.onProgress
	savedComplete := d.onComplete
	d.onProgress = nil
	d.onComplete = nil

	defer func() {
		d.onProgress = savedProgress
		d.onComplete = savedComplete
		d.timeout = savedTimeout
	}()

	if timeout > 0 {
		d.SetTimeout(timeout)
	}

	if !d.Begin(autoSetTime, language) {
		return geodata.Result{}, false
	}

	start := time.Now()
	for d.IsRunning() {
		d.Tick()

		if timeout > 0 && time.Since(start) > timeout {
			d.errKind = geodata.ErrTimeout
			d.Stop()
			break
		}

		time.Sleep(time.Millisecond)
	}

	success := d.state == geodata.StateCompleted
	if success && savedComplete != nil {
		savedComplete(d.result, geodata.ErrNone)
	}

	return d.result, success
}
