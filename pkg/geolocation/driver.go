// Package geolocation implements the non-blocking request driver that
// retrieves IP-based geolocation and timezone data from the line endpoint
// and optionally reconciles the process clock against the response.
//
// The driver owns no goroutine. All behavior is reachable through Begin,
// Tick and Stop, invoked serially by the host loop; each Tick drains
// whatever bytes the transport has ready and advances the state machine.
package geolocation

import (
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"geolocation-client/pkg/clock"
	"geolocation-client/pkg/geodata"
	"geolocation-client/pkg/httpdate"
	"geolocation-client/pkg/transport"
	"geolocation-client/pkg/wire"
)

const (
	// DefaultHost and DefaultPort address the public line endpoint.
	DefaultHost = "ip-api.com"
	DefaultPort = 80

	// DefaultTimeout is the inactivity deadline for a session.
	DefaultTimeout = 15 * time.Second

	// connectDeadline bounds connection establishment, measured from Begin.
	connectDeadline = 5 * time.Second

	// likeValidTime is 2021-01-01T00:00:00Z. A header-derived timestamp at
	// or before it looks like an epoch default and is not trusted.
	likeValidTime = 1609459200

	// httpCorrection compensates for the delay between the server stamping
	// the Date header and this client observing it.
	httpCorrection = 900 * time.Millisecond
)

// ProgressFunc observes state and progress changes. Invoked synchronously,
// inline, before the triggering Begin/Tick returns.
type ProgressFunc func(state geodata.State, progress int)

// CompleteFunc observes session completion, successful or not.
type CompleteFunc func(result geodata.Result, errKind geodata.RequestError)

// Outputs are optional write-through slots filled on successful completion,
// in addition to the driver's own result.
type Outputs struct {
	IP      *string
	Country *string
	City    *string
}

// Driver runs one geolocation request at a time against the collaborating
// transport, link checker and clock reconciler. It is not safe for
// concurrent use; the host loop must serialize Begin/Tick/Stop.
type Driver struct {
	client transport.Client
	link   transport.LinkChecker
	rec    *clock.Reconciler
	logger *slog.Logger

	host        string
	port        int
	timeout     time.Duration
	useHTTPTime bool

	onProgress ProgressFunc
	onComplete CompleteFunc

	// Per-session state, reset at Begin.
	sessionID     uuid.UUID
	state         geodata.State
	errKind       geodata.RequestError
	progress      int
	startTime     time.Time
	lastActivity  time.Time
	executionTime time.Duration
	autoSetTime   bool
	language      string
	outputs       Outputs
	asm           *wire.Assembler
	linesReceived int
	headersParsed bool
	httpDateSet   bool
	staging       geodata.Result
	result        geodata.Result
}

// New returns a Driver wired to its collaborators. A nil logger selects
// slog.Default().
func New(client transport.Client, link transport.LinkChecker, rec *clock.Reconciler, logger *slog.Logger) *Driver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Driver{
		client:      client,
		link:        link,
		rec:         rec,
		logger:      logger,
		host:        DefaultHost,
		port:        DefaultPort,
		timeout:     DefaultTimeout,
		useHTTPTime: true,
		state:       geodata.StateIdle,
		asm:         wire.NewAssembler(0),
	}
}

// SetEndpoint overrides the host and port dialed at Begin.
func (d *Driver) SetEndpoint(host string, port int) {
	d.host = host
	d.port = port
}

// SetTimeout sets the inactivity deadline for subsequent sessions.
func (d *Driver) SetTimeout(timeout time.Duration) {
	d.timeout = timeout
}

// EnableHTTPTime controls whether the Date header may set the process
// clock. Enabled by default, and forced on when Begin requests automatic
// time setting.
func (d *Driver) EnableHTTPTime(enable bool) {
	d.useHTTPTime = enable
}

// OnProgress registers the progress observer. Pass nil to detach.
func (d *Driver) OnProgress(fn ProgressFunc) {
	d.onProgress = fn
}

// OnComplete registers the completion observer. Pass nil to detach.
func (d *Driver) OnComplete(fn CompleteFunc) {
	d.onComplete = fn
}

// IsRunning reports whether a session is in flight.
func (d *Driver) IsRunning() bool {
	return !d.state.Terminal()
}

// State returns the current session phase.
func (d *Driver) State() geodata.State {
	return d.state
}

// Progress returns the 0-100 progress metric.
func (d *Driver) Progress() int {
	return d.progress
}

// Err returns the error kind recorded for the last session.
func (d *Driver) Err() geodata.RequestError {
	return d.errKind
}

// Result returns the geolocation produced by the last successful session.
func (d *Driver) Result() geodata.Result {
	return d.result
}

// SessionID identifies the current (or last) session.
func (d *Driver) SessionID() uuid.UUID {
	return d.sessionID
}

// LastExecutionTime returns how long the last completed session took.
func (d *Driver) LastExecutionTime() time.Duration {
	return d.executionTime
}

// Begin starts a new session. It is accepted only from Idle or a terminal
// state; a Begin while a session is in flight returns false and changes
// nothing. autoSetTime requests the two-stage clock reconciliation after a
// successful parse; language is an optional two-letter response language.
func (d *Driver) Begin(autoSetTime bool, language string) bool {
	return d.BeginWithOutputs(autoSetTime, language, Outputs{})
}

// BeginWithOutputs is Begin with caller-supplied write-through slots that
// receive the IP, country and city strings on successful completion.
func (d *Driver) BeginWithOutputs(autoSetTime bool, language string, outs Outputs) bool {
	if !d.state.Terminal() {
		return false // already running
	}

	d.sessionID = uuid.New()
	d.result = geodata.Result{}
	d.staging = geodata.Result{}
	d.errKind = geodata.ErrNone
	d.progress = geodata.ProgressNone
	d.startTime = time.Now()
	d.lastActivity = d.startTime
	d.executionTime = 0
	d.autoSetTime = autoSetTime
	d.language = language
	d.outputs = outs
	d.linesReceived = 0
	d.headersParsed = false
	d.httpDateSet = false
	d.asm.Reset()

	if autoSetTime {
		d.useHTTPTime = true
	}

	d.logger.Debug("starting geolocation request",
		"session", d.sessionID, "host", d.host, "autoSetTime", autoSetTime)

	if !d.link.LinkUp() {
		d.fail(geodata.ErrNoConnection)
		return false
	}

	if !d.client.Connect(d.host, d.port) {
		d.fail(geodata.ErrHTTP)
		return false
	}

	d.setState(geodata.StateConnecting)
	d.setProgress(geodata.ProgressConnecting)

	d.sendRequest()
	d.setProgress(geodata.ProgressRequestSent)

	return true
}

// Stop unconditionally closes the transport and forces the driver back to
// Idle. Idempotent.
func (d *Driver) Stop() {
	d.client.Stop()
	d.setState(geodata.StateIdle)
}

// Tick advances the state machine. It is a no-op in Idle and the terminal
// states; otherwise it first enforces the inactivity deadline, then runs
// the work of the current phase. The host loop calls this repeatedly.
func (d *Driver) Tick() {
	if d.state.Terminal() {
		return
	}

	if time.Since(d.lastActivity) > d.timeout {
		d.fail(geodata.ErrTimeout)
		return
	}

	switch d.state {
	case geodata.StateConnecting:
		if d.client.Connected() {
			d.setState(geodata.StateReceiving)
			d.setProgress(geodata.ProgressReceiving)
		} else if time.Since(d.startTime) > connectDeadline {
			d.fail(geodata.ErrTimeout)
		}

	case geodata.StateReceiving:
		d.processStream()

	case geodata.StateAllParsed, geodata.StateSettingTime:
		d.complete()
	}
}

func (d *Driver) sendRequest() {
	var req strings.Builder
	req.WriteString("GET /line/?fields=")
	req.WriteString(geodata.QueryFields())
	if len(d.language) == 2 {
		req.WriteString("&lang=")
		req.WriteString(d.language)
	}
	req.WriteString(" HTTP/1.1\r\n")
	req.WriteString("Host: ")
	req.WriteString(d.host)
	req.WriteString("\r\n")
	req.WriteString("Connection: close\r\n")
	req.WriteString("\r\n")

	if err := d.client.Print(req.String()); err != nil {
		d.logger.Debug("request write failed", "session", d.sessionID, "error", err)
	}
}

// processStream drains all currently available bytes through the line
// assembler and routes completed lines by phase. Data may arrive in
// arbitrarily small chunks across many ticks.
func (d *Driver) processStream() {
	for d.client.Available() > 0 {
		b, ok := d.client.ReadByte()
		if !ok {
			break
		}
		d.lastActivity = time.Now()

		line, done, err := d.asm.Feed(b)
		if err != nil {
			d.logger.Debug("oversized response line", "session", d.sessionID)
			d.fail(geodata.ErrParse)
			return
		}
		if !done {
			continue
		}

		if !d.headersParsed {
			d.scanHeaderLine(line)
			continue
		}

		// End-of-header empty lines never reach the extractor; a stray
		// empty body line is skipped rather than assigned.
		if line == "" {
			continue
		}

		if !d.assignField(line, d.linesReceived) {
			d.fail(geodata.ErrParse)
			return
		}
		d.linesReceived++
		d.setProgress(geodata.ProgressHeadersParsed + d.linesReceived*progressPerLine())

		if d.linesReceived >= len(geodata.Schema) {
			d.finishParsing()
			return
		}
	}

	// A disconnect before the full schema arrived, with at least one body
	// line received, is a broken response. A clean disconnect with zero
	// lines is not an error here; the session keeps waiting and times out.
	if !d.client.Connected() && d.linesReceived > 0 && d.linesReceived < len(geodata.Schema) {
		d.fail(geodata.ErrHTTP)
	}
}

func (d *Driver) scanHeaderLine(line string) {
	if line == "" {
		d.headersParsed = true
		d.setProgress(geodata.ProgressHeadersParsed)
		return
	}

	if d.useHTTPTime && !d.httpDateSet && strings.HasPrefix(line, "Date:") {
		when, err := httpdate.Parse(strings.TrimSpace(line[len("Date:"):]))
		if err != nil {
			d.logger.Debug("unusable Date header", "session", d.sessionID, "error", err)
			return
		}
		if when.Unix() > likeValidTime {
			correction := httpCorrection + time.Since(d.startTime)
			d.rec.SetSystemTime(when.Unix(), correction.Microseconds())
			d.httpDateSet = true
		}
	}
}

// finishParsing publishes the staged result and runs the optional
// clock-reconciliation stage before the next tick completes the session.
func (d *Driver) finishParsing() {
	d.setState(geodata.StateAllParsed)

	d.staging.Valid = true
	d.result = d.staging
	if d.outputs.IP != nil {
		*d.outputs.IP = d.result.IP
	}
	if d.outputs.Country != nil {
		*d.outputs.Country = d.result.Country
	}
	if d.outputs.City != nil {
		*d.outputs.City = d.result.City
	}

	if d.autoSetTime && d.result.TimeZone.Valid() {
		d.setState(geodata.StateSettingTime)
		d.rec.ApplyZone(d.result.TimeZone)
	}
	d.setProgress(geodata.ProgressCompleted)
}

func (d *Driver) complete() {
	d.client.Stop()
	d.executionTime = time.Since(d.startTime)
	d.setState(geodata.StateCompleted)

	d.logger.Debug("geolocation request completed",
		"session", d.sessionID, "took", d.executionTime)

	if d.onComplete != nil {
		d.onComplete(d.result, geodata.ErrNone)
	}
}

func (d *Driver) fail(kind geodata.RequestError) {
	d.errKind = kind
	d.client.Stop()
	d.setState(geodata.StateError)

	d.logger.Debug("geolocation request failed",
		"session", d.sessionID, "error", kind.String())

	if d.onComplete != nil {
		d.onComplete(geodata.Result{}, kind)
	}
}

func (d *Driver) setState(state geodata.State) {
	if d.state == state {
		return
	}
	d.state = state
	d.lastActivity = time.Now()
	if d.onProgress != nil {
		d.onProgress(d.state, d.progress)
	}
}

func (d *Driver) setProgress(progress int) {
	if d.progress == progress {
		return
	}
	d.progress = progress
	if d.onProgress != nil {
		d.onProgress(d.state, d.progress)
	}
}

func progressPerLine() int {
	return (geodata.ProgressCompleted - geodata.ProgressHeadersParsed) / len(geodata.Schema)
}
