package events

const (
	// KindTransportFailed identifies fatal upstream stream errors.
	KindTransportFailed Kind = "transport.error"
	// KindTransportClosed identifies the channel closing.
	KindTransportClosed Kind = "transport.closed"
)

// TransportFailed marks the upstream stream reporting an error. The session
// is no longer usable once this arrives.
type TransportFailed struct {
	Base
	Err error
}

// NewTransportFailed creates a transport failed event.
func NewTransportFailed(err error) TransportFailed {
	return TransportFailed{Base: NewBase(KindTransportFailed), Err: err}
}

// TransportClosed marks the channel closing, cleanly or otherwise.
type TransportClosed struct {
	Base
	Reason string
}

// NewTransportClosed creates a transport closed event.
func NewTransportClosed(reason string) TransportClosed {
	return TransportClosed{Base: NewBase(KindTransportClosed), Reason: reason}
}
