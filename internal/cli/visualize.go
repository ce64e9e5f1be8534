package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/matzehuels/sheetflow/pkg/document"
	"github.com/matzehuels/sheetflow/pkg/paginate"
	"github.com/matzehuels/sheetflow/pkg/pipeline"
)

// visualizeCommand creates the visualize command, which draws an existing
// plan file without measuring anything.
func (c *CLI) visualizeCommand() *cobra.Command {
	var output, formats, docPath string
	var thresholds bool

	cmd := &cobra.Command{
		Use:   "visualize [plan.json]",
		Short: "Draw a plan file",
		Long: `Draw a plan written by "plan" or "render -f json".

Plans carry entry IDs only; pass --document to label placements with the
entry titles of the document the plan was made from.`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeDocuments,
		RunE: func(cmd *cobra.Command, args []string) error {
			fs := parseFormats(formats)
			if err := pipeline.ValidateFormats(fs); err != nil {
				return err
			}
			return c.runVisualize(cmd.Context(), args[0], output, docPath, fs, thresholds)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output base path")
	cmd.Flags().StringVarP(&formats, "format", "f", "", "output format(s): svg (default), pdf, xlsx (comma-separated)")
	cmd.Flags().StringVar(&docPath, "document", "", "document to take entry titles from")
	cmd.Flags().BoolVar(&thresholds, "threshold-lines", true, "draw bottom-threshold lines")
	_ = cmd.RegisterFlagCompletionFunc("format", completeFormats(pipeline.FormatSVG, pipeline.FormatPDF, pipeline.FormatXLSX))
	_ = cmd.MarkFlagFilename("document", "toml", "json")

	return cmd
}

func (c *CLI) runVisualize(_ context.Context, input, output, docPath string, formats []string, thresholds bool) error {
	plan, err := paginate.ReadPlanFile(input)
	if err != nil {
		return err
	}
	c.Logger.Debug("loaded plan", "pages", plan.Pages, "placements", len(plan.Placements))

	var in pipeline.RenderInput
	if docPath != "" {
		doc, err := document.ReadFile(docPath)
		if err != nil {
			return err
		}
		in.Title = doc.Title
		in.Labels = doc.Titles()
	}

	artifacts, err := pipeline.Render(plan, in, pipeline.Options{
		Formats:    formats,
		Labels:     in.Labels != nil,
		Thresholds: thresholds,
		Logger:     c.Logger,
	})
	if err != nil {
		return err
	}

	// Strip ".plan" too, so plan.json files do not become *.plan.svg.
	base := basePath(output, basePath("", input))
	paths, err := writeArtifacts(base, artifacts)
	if err != nil {
		return err
	}

	printSuccess("Visualized %s", input)
	for _, p := range paths {
		printFile(p)
	}
	printOverflow(plan)
	return nil
}
