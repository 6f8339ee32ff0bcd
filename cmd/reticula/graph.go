package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aretw0/reticula"
	"github.com/aretw0/reticula/internal/presentation/graph"
	"github.com/aretw0/reticula/pkg/network"
	"github.com/aretw0/reticula/pkg/newick"
)

// newGraphCmd represents the graph command
func newGraphCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "graph [file...]",
		Short: "Export the network as a Mermaid diagram",
		Long: `Infers the network from the input trees (or reads an extended Newick
network with --network) and outputs a Mermaid diagram (graph TD). Reticulation
edges are dotted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			input, err := readInput(args, cmd.InOrStdin())
			if err != nil {
				return err
			}

			var n *network.Network
			if asNetwork, _ := cmd.Flags().GetBool("network"); asNetwork {
				if n, err = newick.ParseNetwork(strings.TrimSpace(input)); err != nil {
					return err
				}
			} else {
				cfg, err := loadConfig(cmd)
				if err != nil {
					return err
				}
				opts, closeCache, err := engineOptions(cfg, newLogger(cfg), nil)
				if err != nil {
					return err
				}
				defer closeCache()
				inf, err := reticula.New(opts...).Infer(cmd.Context(), input)
				if err != nil {
					return err
				}
				n = inf.Network
			}

			var overlay *graph.GraphOverlay
			if taxa, _ := cmd.Flags().GetStringSlice("highlight"); len(taxa) > 0 {
				overlay = &graph.GraphOverlay{Taxa: taxa}
			}
			fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(n, overlay))
			return nil
		},
	}
	cmd.Flags().Bool("network", false, "Read the input as one extended Newick network")
	cmd.Flags().StringSlice("highlight", nil, "Taxa to highlight")
	return cmd
}
