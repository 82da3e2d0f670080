package events

const (
	// KindSessionReady identifies upstream confirmation that the session is live.
	KindSessionReady Kind = "session.ready"
)

// SessionReady marks the upstream confirming the session is live.
type SessionReady struct {
	Base
	SessionID string
}

// NewSessionReady creates a session ready event.
func NewSessionReady(sessionID string) SessionReady {
	return SessionReady{Base: NewBase(KindSessionReady), SessionID: sessionID}
}
