package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aretw0/reticula/internal/presentation/tui"
	"github.com/aretw0/reticula/pkg/newick"
)

func newInspectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect [file...]",
		Short: "Draw Newick trees or a network as ASCII",
		Long: `Parses the input and prints each tree as an indented drawing followed by
its preorder and postorder traversals. With --network the input is read as a
single extended Newick network instead.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			input, err := readInput(args, cmd.InOrStdin())
			if err != nil {
				return err
			}
			palette := tui.Palette{}
			if isTerminal(cmd) {
				palette = tui.NewPalette()
			}
			out := cmd.OutOrStdout()

			if asNetwork, _ := cmd.Flags().GetBool("network"); asNetwork {
				n, err := newick.ParseNetwork(strings.TrimSpace(input))
				if err != nil {
					return err
				}
				fmt.Fprint(out, tui.DrawNetwork(n, palette))
				fmt.Fprintf(out, "taxa: %s\n", strings.Join(n.Taxa(), " "))
				fmt.Fprintf(out, "reticulations: %d\n", len(n.Reticulations()))
				return nil
			}

			trees, err := newick.ParseAll(input)
			if err != nil {
				return err
			}
			for i, t := range trees {
				if i > 0 {
					fmt.Fprintln(out)
				}
				fmt.Fprintf(out, "tree %d: %s\n", i+1, newick.Write(t))
				fmt.Fprint(out, tui.DrawTree(t, palette))
				fmt.Fprint(out, tui.Traversals(t))
				fmt.Fprintf(out, "taxa: %s\n", strings.Join(t.Taxa(), " "))
			}
			return nil
		},
	}
	cmd.Flags().Bool("network", false, "Read the input as one extended Newick network")
	return cmd
}
