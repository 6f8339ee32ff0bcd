package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/reticula"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of reticula",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "reticula version %s\n", reticula.Version)
		},
	}
}
