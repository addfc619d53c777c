package core

import (
	"errors"
	"fmt"
	"testing"
)

func TestDirection(t *testing.T) {
	tests := []struct {
		dir  Direction
		name string
		flow string
	}{
		{DirIngress, "ingress", "down"},
		{DirEgress, "egress", "up"},
	}
	for _, tt := range tests {
		if got := tt.dir.String(); got != tt.name {
			t.Errorf("Expected %q, got %q", tt.name, got)
		}
		if got := tt.dir.Flow(); got != tt.flow {
			t.Errorf("Expected flow %q for %s, got %q", tt.flow, tt.name, got)
		}
	}
	if got := Direction(7).String(); got != "direction(7)" {
		t.Errorf("Expected direction(7), got %q", got)
	}
}

func TestClass(t *testing.T) {
	t.Run("Protocol", func(t *testing.T) {
		if ClassA.Protocol() != ProtoTCP || ClassB.Protocol() != ProtoTCP {
			t.Error("Expected classes A and B to match TCP")
		}
		if ClassC.Protocol() != ProtoUDP {
			t.Error("Expected class C to match UDP")
		}
	})

	t.Run("CounterOrder", func(t *testing.T) {
		for i, c := range Classes {
			if int(c) != i {
				t.Errorf("Expected Classes[%d] == %d, got %d", i, i, c)
			}
		}
	})

	t.Run("Parse", func(t *testing.T) {
		for _, s := range []string{"a", "A", " b ", "c"} {
			c, err := ParseClass(s)
			if err != nil {
				t.Errorf("ParseClass(%q) failed: %v", s, err)
				continue
			}
			if c.String() == "" {
				t.Errorf("Expected a name for %q", s)
			}
		}

		_, err := ParseClass("d")
		if !errors.Is(err, ErrUnknownClass) {
			t.Errorf("Expected ErrUnknownClass, got %v", err)
		}
	})
}

func TestVerdict(t *testing.T) {
	if VerdictPass.String() != "pass" {
		t.Errorf("Expected pass, got %q", VerdictPass.String())
	}
}

func TestSentinelErrors(t *testing.T) {
	t.Run("ErrorMessages", func(t *testing.T) {
		tests := []struct {
			err     error
			message string
		}{
			{ErrMalformedFrame, "peeracct: malformed frame"},
			{ErrNotIP, "peeracct: not an ip frame"},
			{ErrCapacityExceeded, "peeracct: peer table capacity exceeded"},
			{ErrPeerNotFound, "peeracct: peer not found"},
			{ErrDaemonNotRunning, "peeracct: daemon not running"},
		}

		for _, tt := range tests {
			if tt.err.Error() != tt.message {
				t.Errorf("expected error message %q, got %q", tt.message, tt.err.Error())
			}
		}
	})

	t.Run("ErrorWrapping", func(t *testing.T) {
		wrapped := fmt.Errorf("insert 10.0.0.1: %w", ErrCapacityExceeded)
		if !errors.Is(wrapped, ErrCapacityExceeded) {
			t.Error("errors.Is failed for wrapped error")
		}
	})
}
