// Command sparsevec encodes text into BM25 sparse vectors from the command
// line, prints token hashes and inspects encoded documents.
package main

import (
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/sparse-encoder/pkg/logger"
)

func newRootCommand() *cobra.Command {
	var logLevel string

	rootCmd := &cobra.Command{
		Use:           "sparsevec",
		Short:         "Encode text into sparse lexical vectors",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			slog.SetDefault(logger.New(cmd.ErrOrStderr(), logLevel, "text"))
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(newEncodeCommand())
	rootCmd.AddCommand(newHashCommand())
	rootCmd.AddCommand(newLanguagesCommand())
	rootCmd.AddCommand(newInspectCommand())

	return rootCmd
}

func readAllString(r io.Reader) (string, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
