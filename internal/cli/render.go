package cli

import (
	"context"
	"fmt"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/matzehuels/sheetflow/pkg/errors"
	"github.com/matzehuels/sheetflow/pkg/pipeline"
)

// renderOpts holds the command-line flags for the render command.
type renderOpts struct {
	output     string // output base path
	formats    string // comma-separated output formats
	labels     bool   // draw entry titles instead of IDs
	thresholds bool   // draw bottom-threshold lines
}

// renderCommand creates the render command, which plans a document and
// draws the plan.
func (c *CLI) renderCommand() *cobra.Command {
	var flags layoutFlags
	opts := renderOpts{labels: true, thresholds: true}

	cmd := &cobra.Command{
		Use:   "render [document]",
		Short: "Plan a document and draw the result",
		Long: `Plan a document and write the plan in one or more formats.

Each format is written to <base>.<format>, where base is -o without a known
extension or the document path without its extension.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			formats := parseFormats(opts.formats)
			if err := pipeline.ValidateFormats(formats); err != nil {
				return err
			}
			return c.runRender(cmd.Context(), args[0], formats, &opts, &flags)
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output base path")
	cmd.Flags().StringVarP(&opts.formats, "format", "f", "", "output format(s): svg (default), json, pdf, xlsx (comma-separated)")
	_ = cmd.RegisterFlagCompletionFunc("format", completeFormats(pipeline.FormatSVG, pipeline.FormatJSON, pipeline.FormatPDF, pipeline.FormatXLSX))
	cmd.Flags().BoolVar(&opts.labels, "labels", opts.labels, "label placements with entry titles")
	cmd.Flags().BoolVar(&opts.thresholds, "threshold-lines", opts.thresholds, "draw bottom-threshold lines")

	return cmd
}

func (c *CLI) runRender(ctx context.Context, input string, formats []string, opts *renderOpts, flags *layoutFlags) error {
	doc, err := flags.loadDocument(input)
	if err != nil {
		return err
	}

	runner, err := c.newRunner(ctx, flags)
	if err != nil {
		return err
	}
	defer runner.Close()

	popts := flags.options()
	popts.Formats = formats
	popts.Labels = opts.labels
	popts.Thresholds = opts.thresholds

	spinner := newSpinner(ctx, os.Stderr, fmt.Sprintf("Rendering %s...", input))
	spinner.Start()
	result, err := runner.Execute(ctx, doc, popts)
	if err != nil {
		if spinner.Cancelled() {
			spinner.StopWithError("render cancelled")
		} else {
			spinner.Stop()
		}
		return err
	}
	took := spinner.Elapsed()
	spinner.Stop()

	base := basePath(opts.output, input)
	paths, err := writeArtifacts(base, result.Artifacts)
	if err != nil {
		return err
	}

	printSuccess("Rendered %s in %s", input, formatElapsed(took))
	for _, p := range paths {
		printFile(p)
	}
	printPlanStats(result.Stats, result.CacheInfo.MeasureHit)
	printOverflow(result.Plan)
	return nil
}

// writeArtifacts writes each artifact to base.<format> in a stable order and
// returns the paths written.
func writeArtifacts(base string, artifacts map[string][]byte) ([]string, error) {
	formats := make([]string, 0, len(artifacts))
	for f := range artifacts {
		formats = append(formats, f)
	}
	slices.Sort(formats)

	paths := make([]string, 0, len(formats))
	for _, f := range formats {
		path := base + "." + f
		if err := os.WriteFile(path, artifacts[f], 0o644); err != nil {
			return paths, errors.Wrap(errors.ErrCodeInvalidPath, err, "write %s", path)
		}
		paths = append(paths, path)
	}
	return paths, nil
}
