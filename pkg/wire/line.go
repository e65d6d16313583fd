// Package wire implements incremental framing of a byte stream into lines.
// Bytes may arrive in arbitrarily small fragments across many calls; partial
// lines are buffered until their terminating line feed shows up.
package wire

import "errors"

// ErrLineTooLong is returned by Feed when a line exceeds the assembler's
// configured cap before its terminator arrives.
var ErrLineTooLong = errors.New("wire: line exceeds maximum length")

// DefaultMaxLine bounds buffer growth on streams that never send a line
// feed. Response lines from the geolocation endpoint are all well under this.
const DefaultMaxLine = 1024

// Assembler accumulates bytes into a pending buffer and yields complete
// lines. A carriage return is discarded, a line feed completes the pending
// buffer. Two back-to-back line feeds yield an empty line, which is how the
// end of the HTTP header block is signaled.
type Assembler struct {
	buf []byte
	max int
}

// NewAssembler returns an Assembler capping lines at maxLine bytes. A
// non-positive maxLine selects DefaultMaxLine.
func NewAssembler(maxLine int) *Assembler {
	if maxLine <= 0 {
		maxLine = DefaultMaxLine
	}
	return &Assembler{max: maxLine}
}

// Feed consumes one byte. When the byte completes a line, Feed returns the
// line (possibly empty) and ok=true; otherwise ok=false. The pending buffer
// is cleared whenever a line is returned.
func (a *Assembler) Feed(c byte) (line string, ok bool, err error) {
	switch c {
	case '\n':
		line = string(a.buf)
		a.buf = a.buf[:0]
		return line, true, nil
	case '\r':
		return "", false, nil
	default:
		if len(a.buf) >= a.max {
			return "", false, ErrLineTooLong
		}
		a.buf = append(a.buf, c)
		return "", false, nil
	}
}

// Reset discards any buffered partial line.
func (a *Assembler) Reset() {
	a.buf = a.buf[:0]
}

// Pending returns the number of buffered bytes awaiting a terminator.
func (a *Assembler) Pending() int {
	return len(a.buf)
}
