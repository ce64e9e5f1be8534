// Package cli implements the sheetflow command-line interface.
//
// Commands read a document (TOML or JSON), run it through the measure, plan
// and render pipeline, and write the results next to the input:
//   - plan: write the placement plan as JSON
//   - render: write the plan as SVG, PDF, XLSX or JSON
//   - visualize: draw an existing plan file
//   - measure: record entry heights into a copy of the document
//   - diagnose: compare estimated heights with recorded ones
//   - browse: page through a plan in the terminal
//   - cache: manage the measurement and artifact cache
//
// All commands support --verbose (-v) for debug-level logging, which also
// logs pipeline stage and cache events.
package cli

import (
	"io"
	"time"

	"github.com/charmbracelet/log"
)

// newLogger creates a new logger with timestamp formatting.
// The logger writes to w and filters messages at the specified level.
// Timestamps are formatted as "HH:MM:SS.ms" (e.g., "14:32:01.45").
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// progress tracks the start time of an operation and logs completion with elapsed duration.
// It is safe for sequential use by a single goroutine; concurrent calls to done will race.
type progress struct {
	logger *log.Logger
	start  time.Time
}

// newProgress creates a progress tracker that captures the current time as start.
// The returned progress should call done when the operation completes.
func newProgress(l *log.Logger) *progress {
	return &progress{logger: l, start: time.Now()}
}

// done logs msg along with the elapsed time since progress was created.
// The duration is rounded to the nearest millisecond.
// Example output: "Planned monsters.toml (12ms)"
func (p *progress) done(msg string) {
	p.logger.Infof("%s (%s)", msg, time.Since(p.start).Round(time.Millisecond))
}
