package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/sparse-encoder/internal/encoder/sparse"
)

func newInspectCommand() *cobra.Command {
	var (
		file   string
		lookup []string
	)
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Validate a sparse vector document and look up tokens in it",
		Long: `Validate a sparse vector document and look up tokens in it.

The document is the JSON published by the encoder worker or returned by the
API ({"indices": [...], "values": [...], "length": n}), read from --file or
standard input. Each --lookup token is hashed as-is and its value printed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readInput(cmd, file, nil)
			if err != nil {
				return err
			}
			var doc sparse.Document
			if err := json.Unmarshal([]byte(raw), &doc); err != nil {
				return fmt.Errorf("decoding document: %w", err)
			}
			vec, length, err := sparse.FromDocument(doc)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "entries: %d\n", len(vec))
			fmt.Fprintf(w, "document length: %d\n", length)
			for _, token := range lookup {
				if v, ok := vec.Lookup(sparse.Hash(token)); ok {
					fmt.Fprintf(w, "%s\t%d\n", token, v)
				} else {
					fmt.Fprintf(w, "%s\tabsent\n", token)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "Read the document from this file")
	cmd.Flags().StringSliceVar(&lookup, "lookup", nil, "Tokens to look up (already normalized and stemmed)")
	return cmd
}
