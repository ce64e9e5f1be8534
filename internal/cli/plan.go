package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/sheetflow/pkg/paginate"
	"github.com/matzehuels/sheetflow/pkg/pipeline"
)

// planCommand creates the plan command, which writes a placement plan file.
func (c *CLI) planCommand() *cobra.Command {
	var flags layoutFlags
	var output string

	cmd := &cobra.Command{
		Use:   "plan [document]",
		Short: "Compute a placement plan for a document",
		Long: `Measure every entry of a document and assign it to page columns.

The plan is written as JSON to <document>.plan.json unless -o is given.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runPlan(cmd.Context(), args[0], output, &flags)
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default <document>.plan.json)")

	return cmd
}

func (c *CLI) runPlan(ctx context.Context, input, output string, flags *layoutFlags) error {
	doc, err := flags.loadDocument(input)
	if err != nil {
		return err
	}

	runner, err := c.newRunner(ctx, flags)
	if err != nil {
		return err
	}
	defer runner.Close()

	opts := flags.options()
	opts.Formats = []string{pipeline.FormatJSON}

	prog := newProgress(c.Logger)
	result, err := runner.Execute(ctx, doc, opts)
	if err != nil {
		return err
	}
	prog.done(fmt.Sprintf("Planned %s", input))

	if output == "" {
		output = basePath("", input) + ".plan.json"
	}
	if err := paginate.WritePlanFile(result.Plan, output); err != nil {
		return err
	}

	printSuccess("Plan written")
	printFile(output)
	printPlanStats(result.Stats, result.CacheInfo.MeasureHit)
	printOverflow(result.Plan)
	printNextStep("Draw it", fmt.Sprintf("%s visualize %s", appName, output))
	return nil
}

// printOverflow warns about placements that do not fit their region.
func printOverflow(plan paginate.Plan) {
	for _, pl := range plan.Overflowed() {
		printWarning("%s overflows region %s (%s)", pl.EntryID, pl.Region, pl.Items)
	}
}
