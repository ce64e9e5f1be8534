package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/sheetflow/pkg/buildinfo"
	"github.com/matzehuels/sheetflow/pkg/cache"
	"github.com/matzehuels/sheetflow/pkg/observability"
	"github.com/matzehuels/sheetflow/pkg/pipeline"
)

const (
	// appName is the application name used for directories and display.
	appName = "sheetflow"

	// redisURLEnv selects a shared Redis cache when --cache-url is not given.
	redisURLEnv = "SHEETFLOW_REDIS_URL"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level. At debug level pipeline and cache
// events are logged too.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
	if level <= log.DebugLevel {
		hooks := observability.NewLoggingHooks(c.Logger)
		observability.SetPipelineHooks(hooks)
		observability.SetCacheHooks(hooks)
	}
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	info := buildinfo.Get()
	root := &cobra.Command{
		Use:          appName,
		Short:        "Sheetflow lays out content blocks across page columns",
		Long:         `Sheetflow plans how the entries of a document flow through a grid of page columns: which column each entry lands in, where long entries split between items, and which entries overflow.`,
		Version:      info.Version,
		SilenceUsage: true,
	}

	root.SetVersionTemplate(buildinfo.Template())

	root.AddCommand(c.planCommand())
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.visualizeCommand())
	root.AddCommand(c.measureCommand())
	root.AddCommand(c.diagnoseCommand())
	root.AddCommand(c.browseCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// newRunner creates a pipeline runner for CLI use.
func (c *CLI) newRunner(ctx context.Context, f *layoutFlags) (*pipeline.Runner, error) {
	ch, err := c.newCache(ctx, f.noCache, f.cacheURL)
	if err != nil {
		return nil, err
	}
	return pipeline.NewRunner(ch, keyerFor(ch), c.Logger), nil
}

// keyerFor namespaces keys in a shared Redis cache. Local caches use
// unprefixed keys.
func keyerFor(ch cache.Cache) cache.Keyer {
	if _, ok := ch.(*cache.RedisCache); ok {
		return cache.NewScopedKeyer(cache.NewDefaultKeyer(), appName+":")
	}
	return cache.NewDefaultKeyer()
}

// newCache picks the cache backend: none, Redis when a URL is configured, or
// the file cache under the user cache directory. An unreachable Redis falls
// back to the file cache.
func (c *CLI) newCache(ctx context.Context, noCache bool, url string) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	if url == "" {
		url = os.Getenv(redisURLEnv)
	}
	if url != "" {
		rc, err := cache.NewRedisCache(ctx, url)
		if err == nil {
			c.Logger.Debug("using redis cache")
			return rc, nil
		}
		c.Logger.Warn("redis cache unavailable, using file cache", "err", err)
	}
	dir, err := cacheDir()
	if err != nil {
		return cache.NewNullCache(), nil
	}
	return cache.NewFileCache(dir)
}

// cacheDir returns the cache directory using XDG standard (~/.cache/sheetflow/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

// parseFormats parses a comma-separated format string into a slice.
func parseFormats(s string) []string {
	if s == "" {
		return []string{pipeline.FormatSVG}
	}
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// basePath derives the output path stem. With no output it strips the
// extension from input; a known format extension on output is stripped too.
func basePath(output, input string) string {
	if output == "" {
		return strings.TrimSuffix(input, filepath.Ext(input))
	}
	ext := filepath.Ext(output)
	if pipeline.ValidFormats[strings.TrimPrefix(ext, ".")] {
		return strings.TrimSuffix(output, ext)
	}
	return output
}
