package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"
)

// drawingSpinner returns a spinner that animates into a buffer.
func drawingSpinner(ctx context.Context, msg string) (*Spinner, *bytes.Buffer) {
	var buf bytes.Buffer
	s := newSpinner(ctx, &buf, msg)
	s.animate = true
	return s, &buf
}

func TestSpinnerDrawsMessage(t *testing.T) {
	s, buf := drawingSpinner(context.Background(), "Rendering monsters.toml...")
	s.Start()
	time.Sleep(200 * time.Millisecond)
	s.Stop()

	out := buf.String()
	if !strings.Contains(out, "Rendering monsters.toml...") {
		t.Errorf("spinner output %q does not contain the message", out)
	}
	if !strings.Contains(out, "0.") {
		t.Errorf("spinner output %q does not show elapsed time", out)
	}
	if !strings.HasSuffix(out, "\r") {
		t.Error("spinner should clear its line on stop")
	}
}

func TestSpinnerSilentWithoutTerminal(t *testing.T) {
	var buf bytes.Buffer
	s := newSpinner(context.Background(), &buf, "Rendering...")
	if s.animate {
		t.Fatal("a buffer is not a terminal")
	}
	s.Start()
	time.Sleep(100 * time.Millisecond)
	s.Stop()

	if buf.Len() != 0 {
		t.Errorf("redirected output got %q", buf.String())
	}
	if s.Elapsed() < 100*time.Millisecond {
		t.Errorf("Elapsed() = %v, want the clock to run", s.Elapsed())
	}
}

func TestFormatElapsed(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "0.0s"},
		{1500 * time.Millisecond, "1.5s"},
		{42 * time.Second, "42.0s"},
	}
	for _, tt := range tests {
		if got := formatElapsed(tt.d); got != tt.want {
			t.Errorf("formatElapsed(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestSpinnerStopsWithContext(t *testing.T) {
	tests := []struct {
		name string
		ctx  func() (context.Context, context.CancelFunc)
	}{
		{"cancel", func() (context.Context, context.CancelFunc) {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			return ctx, cancel
		}},
		{"timeout", func() (context.Context, context.CancelFunc) {
			return context.WithTimeout(context.Background(), 20*time.Millisecond)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := tt.ctx()
			defer cancel()

			s, _ := drawingSpinner(ctx, "Planning...")
			s.Start()
			time.Sleep(100 * time.Millisecond)

			if !s.Cancelled() {
				t.Error("spinner should report cancellation")
			}
			s.Stop()
		})
	}
}

func TestSpinnerStopTwice(t *testing.T) {
	s, _ := drawingSpinner(context.Background(), "Measuring...")
	s.Start()
	s.Stop()
	s.Stop()
}

func TestSpinnerStopWithError(t *testing.T) {
	s, buf := drawingSpinner(context.Background(), "Rendering...")
	s.Start()
	time.Sleep(100 * time.Millisecond)
	s.StopWithError("render failed")

	if !strings.HasSuffix(buf.String(), "\r") {
		t.Error("spinner line should be cleared before the error is printed")
	}
}
