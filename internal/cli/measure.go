package cli

import (
	"context"
	"path/filepath"

	"github.com/spf13/cobra"
)

// measureCommand creates the measure command, which records measured
// heights into a copy of the document.
func (c *CLI) measureCommand() *cobra.Command {
	var flags layoutFlags
	var output string

	cmd := &cobra.Command{
		Use:   "measure [document]",
		Short: "Record entry heights into a document",
		Long: `Measure every entry and write a copy of the document with the heights
recorded, so later runs can use --source rendered.

Entries that could not be measured keep the heights they had.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runMeasure(cmd.Context(), args[0], output, &flags)
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "", "output document (default <document>.measured.<ext>)")

	return cmd
}

func (c *CLI) runMeasure(ctx context.Context, input, output string, flags *layoutFlags) error {
	doc, err := flags.loadDocument(input)
	if err != nil {
		return err
	}

	runner, err := c.newRunner(ctx, flags)
	if err != nil {
		return err
	}
	defer runner.Close()

	snap, hit, err := runner.MeasureWithCacheInfo(ctx, doc, flags.options())
	if err != nil {
		return err
	}

	if output == "" {
		output = basePath("", input) + ".measured" + filepath.Ext(input)
	}
	if err := doc.WithMeasurements(snap).WriteFile(output); err != nil {
		return err
	}

	printSuccess("Measured %d entries (%s)", len(snap.Entries), snap.Source)
	printFile(output)
	for _, id := range snap.Missing {
		printWarning("%s could not be measured", id)
	}
	printCacheStatus(hit)
	return nil
}
