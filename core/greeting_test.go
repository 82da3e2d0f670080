package session

import (
	"strings"
	"testing"
	"time"
)

func TestGreetingFollowsTimeOfDay(t *testing.T) {
	cases := []struct {
		hour int
		want string
	}{
		{hour: 3, want: "Hello"},
		{hour: 9, want: "Good morning"},
		{hour: 14, want: "Good afternoon"},
		{hour: 21, want: "Good evening"},
	}

	for _, c := range cases {
		at := time.Date(2025, time.March, 1, c.hour, 0, 0, 0, time.UTC)
		if greeting := greetingFor(at); !strings.HasPrefix(greeting, c.want) {
			t.Fatalf("expected greeting at %02d:00 to start with %q, got %q", c.hour, c.want, greeting)
		}
	}
}
