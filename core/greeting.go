package session

import "time"

// greetingFor picks a time-of-day-appropriate opening line sent once per
// session as a user-role message.
func greetingFor(t time.Time) string {
	switch hour := t.Hour(); {
	case hour < 5:
		return "Hello! Let's get started."
	case hour < 12:
		return "Good morning! Let's get started."
	case hour < 18:
		return "Good afternoon! Let's get started."
	default:
		return "Good evening! Let's get started."
	}
}
