package cli

import (
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/sheetflow/pkg/pipeline"
)

// completionCommand prints a shell completion script. Besides subcommands
// and flags, the scripts complete document paths, --source values and
// comma-separated --format lists.
func (c *CLI) completionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Print a completion script for the given shell.

Load it for the current session, for example:

  $ source <(sheetflow completion bash)
  $ sheetflow completion fish | source
  PS> sheetflow completion powershell | Out-String | Invoke-Expression

Zsh needs compinit enabled and the script placed on $fpath as _sheetflow.

Document arguments complete to .toml and .json files, and --format offers
the formats not yet listed.`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, root := cmd.OutOrStdout(), cmd.Root()
			switch args[0] {
			case "bash":
				return root.GenBashCompletionV2(out, true)
			case "zsh":
				return root.GenZshCompletion(out)
			case "fish":
				return root.GenFishCompletion(out, true)
			default:
				return root.GenPowerShellCompletionWithDesc(out)
			}
		},
	}
}

// completeDocuments offers document and plan files for the single
// positional argument.
func completeDocuments(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	return []string{"toml", "json"}, cobra.ShellCompDirectiveFilterFileExt
}

// completeSources offers the measurement sources with a short description.
func completeSources(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
	return []string{
		pipeline.SourceEstimate + "\tpredict heights from text",
		pipeline.SourceRendered + "\tuse heights recorded in the document",
	}, cobra.ShellCompDirectiveNoFileComp
}

// completeFormats returns a completion function for a comma-separated
// format list. Formats already listed are not offered again.
func completeFormats(formats ...string) func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
	return func(_ *cobra.Command, _ []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		done, prefix := "", toComplete
		if i := strings.LastIndex(toComplete, ","); i >= 0 {
			done, prefix = toComplete[:i+1], toComplete[i+1:]
		}
		listed := strings.Split(strings.TrimSuffix(done, ","), ",")

		var out []string
		for _, f := range formats {
			if slices.Contains(listed, f) || !strings.HasPrefix(f, prefix) {
				continue
			}
			out = append(out, done+f)
		}
		return out, cobra.ShellCompDirectiveNoFileComp | cobra.ShellCompDirectiveNoSpace
	}
}
