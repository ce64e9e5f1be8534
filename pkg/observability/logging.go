package observability

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
)

// LoggingHooks reports pipeline and cache events at debug level. The CLI
// registers it when running with --verbose.
type LoggingHooks struct {
	Logger *log.Logger
}

// NewLoggingHooks creates hooks that write to logger.
func NewLoggingHooks(logger *log.Logger) *LoggingHooks {
	if logger == nil {
		logger = log.Default()
	}
	return &LoggingHooks{Logger: logger}
}

func (h *LoggingHooks) OnMeasureStart(_ context.Context, source string, entryCount int) {
	h.Logger.Debug("measure start", "source", source, "entries", entryCount)
}

func (h *LoggingHooks) OnMeasureComplete(_ context.Context, source string, missing int, d time.Duration, err error) {
	h.Logger.Debug("measure complete", "source", source, "missing", missing, "duration", d, "err", err)
}

func (h *LoggingHooks) OnPlanStart(_ context.Context, entryCount int) {
	h.Logger.Debug("plan start", "entries", entryCount)
}

func (h *LoggingHooks) OnPlanComplete(_ context.Context, pages, overflowed int, d time.Duration, err error) {
	h.Logger.Debug("plan complete", "pages", pages, "overflowed", overflowed, "duration", d, "err", err)
}

func (h *LoggingHooks) OnRenderStart(_ context.Context, formats []string) {
	h.Logger.Debug("render start", "formats", formats)
}

func (h *LoggingHooks) OnRenderComplete(_ context.Context, formats []string, d time.Duration, err error) {
	h.Logger.Debug("render complete", "formats", formats, "duration", d, "err", err)
}

func (h *LoggingHooks) OnCacheHit(_ context.Context, keyType string) {
	h.Logger.Debug("cache hit", "type", keyType)
}

func (h *LoggingHooks) OnCacheMiss(_ context.Context, keyType string) {
	h.Logger.Debug("cache miss", "type", keyType)
}

func (h *LoggingHooks) OnCacheSet(_ context.Context, keyType string, size int) {
	h.Logger.Debug("cache set", "type", keyType, "bytes", size)
}

var (
	_ PipelineHooks = (*LoggingHooks)(nil)
	_ CacheHooks    = (*LoggingHooks)(nil)
)
