package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/mattn/go-runewidth"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// Spinner shows an in-flight pipeline run with its elapsed time. It draws
// only when its writer is a terminal, so redirected output stays clean, and
// it stops on its own when the run's context is cancelled.
type Spinner struct {
	out     io.Writer
	animate bool
	message string
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
	stopped chan struct{}
	start   time.Time

	mu    sync.Mutex
	drawn int // display width of the last frame
}

// newSpinner creates a spinner writing to out that stops when ctx is
// cancelled.
func newSpinner(ctx context.Context, out io.Writer, message string) *Spinner {
	spinnerCtx, cancel := context.WithCancel(ctx)
	return &Spinner{
		out:     out,
		animate: isTerminal(out),
		message: message,
		ctx:     spinnerCtx,
		cancel:  cancel,
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Start begins the animation. On a non-terminal writer it only starts the
// clock.
func (s *Spinner) Start() {
	s.start = time.Now()
	if !s.animate {
		close(s.stopped)
		return
	}
	go func() {
		defer close(s.stopped)
		ticker := time.NewTicker(80 * time.Millisecond)
		defer ticker.Stop()

		for i := 0; ; i++ {
			select {
			case <-s.ctx.Done():
				s.clearLine()
				return
			case <-s.done:
				return
			case <-ticker.C:
				s.draw(spinnerFrames[i%len(spinnerFrames)])
			}
		}
	}()
}

func (s *Spinner) draw(frame string) {
	elapsed := formatElapsed(time.Since(s.start))
	width := runewidth.StringWidth(frame) + runewidth.StringWidth(s.message) + len(elapsed) + 2

	s.mu.Lock()
	defer s.mu.Unlock()
	pad := ""
	if s.drawn > width {
		pad = strings.Repeat(" ", s.drawn-width)
	}
	fmt.Fprintf(s.out, "\r%s %s %s%s",
		styleIconSpinner.Render(frame), StyleDim.Render(s.message), StyleDim.Render(elapsed), pad)
	s.drawn = width
}

// formatElapsed renders d with tenth-of-a-second precision.
func formatElapsed(d time.Duration) string {
	return fmt.Sprintf("%.1fs", d.Seconds())
}

// Stop stops the spinner and clears its line. It is safe to call twice.
func (s *Spinner) Stop() {
	s.cancel()
	select {
	case <-s.done:
	default:
		close(s.done)
	}
	<-s.stopped
	s.clearLine()
}

func (s *Spinner) clearLine() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.drawn == 0 {
		return
	}
	fmt.Fprintf(s.out, "\r%s\r", strings.Repeat(" ", s.drawn))
	s.drawn = 0
}

// Elapsed returns the time since Start.
func (s *Spinner) Elapsed() time.Duration {
	return time.Since(s.start)
}

// StopWithError stops the spinner and shows an error message.
func (s *Spinner) StopWithError(message string) {
	s.Stop()
	printError("%s", message)
}

// Cancelled reports whether the run's context ended before Stop.
func (s *Spinner) Cancelled() bool {
	return s.ctx.Err() != nil
}
