package common

// --------------------------------------------------------------------------
// Envelope Structure
// --------------------------------------------------------------------------

// Envelope keys used on the wire. An envelope is a plain mapping so that the
// pluggable serializers can encode it without any schema knowledge and so
// that handlers can attach arbitrary additional fields to a response.
const (
	KeyCommand   = "command"
	KeyData      = "data"
	KeyRequestID = "request_id"
	KeyResult    = "result"
	KeyError     = "error"
	KeyTraceback = "traceback"
)

// Envelope represents a single message used for both commands and responses.
// Which keys are present depends on the kind of message: an inbound command
// carries "command" (and optionally "data" and "request_id"), a response
// carries "request_id" together with "result" or "error".
type Envelope map[string]interface{}

// --------------------------------------------------------------------------
// Envelope Factory Functions
// --------------------------------------------------------------------------

// NewCommandEnvelope creates a new command envelope. An empty requestID
// produces a fire-and-forget command that the peer will not reply to.
func NewCommandEnvelope(command string, data interface{}, requestID string) Envelope {
	e := Envelope{KeyCommand: command}
	if data != nil {
		e[KeyData] = data
	}
	if requestID != "" {
		e[KeyRequestID] = requestID
	}
	return e
}

// NewResultEnvelope creates a response envelope wrapping a handler result.
func NewResultEnvelope(result interface{}, requestID string) Envelope {
	return Envelope{
		KeyResult:    result,
		KeyRequestID: requestID,
	}
}

// NewErrorEnvelope creates an error response envelope. The traceback carries
// diagnostic detail (the error chain or a stack trace) and may be empty.
func NewErrorEnvelope(errMsg, traceback string) Envelope {
	e := Envelope{KeyError: errMsg}
	if traceback != "" {
		e[KeyTraceback] = traceback
	}
	return e
}

// --------------------------------------------------------------------------
// Accessors
// --------------------------------------------------------------------------

// Command returns the command name and whether one is present.
func (e Envelope) Command() (string, bool) {
	s, ok := e[KeyCommand].(string)
	return s, ok
}

// Data returns the data value, or nil if none is present.
func (e Envelope) Data() interface{} {
	return e[KeyData]
}

// RequestID returns the request id and whether one is present.
func (e Envelope) RequestID() (string, bool) {
	s, ok := e[KeyRequestID].(string)
	return s, ok && s != ""
}

// Result returns the result value, or nil if none is present.
func (e Envelope) Result() interface{} {
	return e[KeyResult]
}

// Err returns the error message and whether one is present.
func (e Envelope) Err() (string, bool) {
	s, ok := e[KeyError].(string)
	return s, ok && s != ""
}

// FromValue converts a decoded serializer value into an Envelope. Serializers
// differ in the map types they produce for mappings (msgpack may yield
// map[interface{}]interface{} for untagged maps), so both shapes are accepted.
func FromValue(v interface{}) (Envelope, bool) {
	switch m := v.(type) {
	case map[string]interface{}:
		return Envelope(m), true
	case Envelope:
		return m, true
	case map[interface{}]interface{}:
		e := make(Envelope, len(m))
		for k, val := range m {
			ks, ok := k.(string)
			if !ok {
				return nil, false
			}
			e[ks] = val
		}
		return e, true
	default:
		return nil, false
	}
}
