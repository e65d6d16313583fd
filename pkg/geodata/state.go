package geodata

// State is the discrete stage of an in-flight geolocation request.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateReceiving
	StateAllParsed
	StateSettingTime
	StateCompleted
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateConnecting:
		return "Connecting"
	case StateReceiving:
		return "Receiving"
	case StateAllParsed:
		return "AllParsed"
	case StateSettingTime:
		return "SettingTime"
	case StateCompleted:
		return "Completed"
	default:
		return "Error"
	}
}

// Terminal reports whether the state accepts a new Begin.
func (s State) Terminal() bool {
	return s == StateIdle || s == StateCompleted || s == StateError
}

// RequestError classifies why a session ended in StateError.
type RequestError int

const (
	ErrNone RequestError = iota
	ErrNoConnection
	ErrTimeout
	ErrRateLimited
	ErrParse
	ErrHTTP
	ErrUnknown
)

func (e RequestError) String() string {
	switch e {
	case ErrNone:
		return "none"
	case ErrNoConnection:
		return "no network connection"
	case ErrTimeout:
		return "request timeout"
	case ErrRateLimited:
		return "rate limited"
	case ErrParse:
		return "parse error"
	case ErrHTTP:
		return "HTTP error"
	default:
		return "unknown error"
	}
}

// Progress milestones. Body lines fill the span between ProgressHeadersParsed
// and ProgressCompleted in equal steps of ProgressPerLine.
const (
	ProgressNone          = 0
	ProgressConnecting    = 10
	ProgressRequestSent   = 20
	ProgressReceiving     = 30
	ProgressHeadersParsed = 40
	ProgressCompleted     = 100
)
