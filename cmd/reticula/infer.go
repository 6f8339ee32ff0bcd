package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/aretw0/reticula"
	"github.com/aretw0/reticula/internal/presentation/tui"
)

func newInferCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "infer [file...]",
		Short: "Infer a phylogenetic network from Newick trees",
		Long: `Reads semicolon-terminated Newick trees from the given files (or stdin)
and prints the rooted network in extended Newick.`,
		Example: `  reticula infer genes.nwk
  echo "((A,B),(C,D));((A,C),(B,D));" | reticula infer --summary`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			input, err := readInput(args, cmd.InOrStdin())
			if err != nil {
				return err
			}

			logger := newLogger(cfg)
			opts, closeCache, err := engineOptions(cfg, logger, nil)
			if err != nil {
				return err
			}
			defer closeCache()

			inf, err := reticula.New(opts...).Infer(cmd.Context(), input)
			if err != nil {
				return err
			}

			summary, _ := cmd.Flags().GetBool("summary")
			if !summary {
				fmt.Fprintln(cmd.OutOrStdout(), inf.Newick)
				return nil
			}

			md := tui.Summary{
				Newick:         inf.Newick,
				Trees:          inf.Trees,
				Taxa:           inf.Taxa,
				Quartets:       inf.Quartets,
				Irreconcilable: inf.Irreconcilable,
				Reticulations:  inf.Reticulations,
				Root:           inf.Root,
				Cached:         inf.Cached,
			}.Markdown()
			if isTerminal(cmd) {
				if out, err := tui.NewRenderer()(md); err == nil {
					md = out
				}
			}
			fmt.Fprint(cmd.OutOrStdout(), md)
			return nil
		},
	}
	cmd.Flags().Bool("summary", false, "Print a report with counts alongside the network")
	return cmd
}

// isTerminal reports whether the command writes to an interactive terminal.
func isTerminal(cmd *cobra.Command) bool {
	f, ok := cmd.OutOrStdout().(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
