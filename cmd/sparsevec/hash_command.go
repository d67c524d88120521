package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/sparse-encoder/internal/encoder/sparse"
	"github.com/Adithya-Monish-Kumar-K/sparse-encoder/internal/encoder/stemmer"
)

func newHashCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "hash <token>...",
		Short: "Print the vector index of each token as-is",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, token := range args {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d\t%#08x\n", token, sparse.Hash(token), sparse.Hash(token))
			}
			return nil
		},
	}
}

func newLanguagesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "languages",
		Short: "List supported stemming languages",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, l := range stemmer.Languages() {
				fmt.Fprintln(cmd.OutOrStdout(), l)
			}
			return nil
		},
	}
}
