package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/sparse-encoder/internal/encoder"
	"github.com/Adithya-Monish-Kumar-K/sparse-encoder/internal/encoder/sparse"
	"github.com/Adithya-Monish-Kumar-K/sparse-encoder/internal/encoder/tokenizer"
)

type encodeFlags struct {
	language        string
	maxTokenLength  int
	disableStemming bool
	stopwordsPath   string
	strictLength    bool
	file            string
	jsonOutput      bool
	showTokens      bool
}

type encodeOutput struct {
	Indices        []uint32  `json:"indices"`
	Values         []float32 `json:"values"`
	DocumentLength uint16    `json:"document_length"`
	Tokens         []string  `json:"tokens,omitempty"`
}

func newEncodeCommand() *cobra.Command {
	var flags encodeFlags
	cmd := &cobra.Command{
		Use:   "encode [text...]",
		Short: "Encode text into a sparse vector",
		Long: `Encode text into a sparse vector.

The text comes from the arguments, from --file, or from standard input when
neither is given. Each output line is "index value" followed by the document
length.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readInput(cmd, flags.file, args)
			if err != nil {
				return err
			}
			stopwords, err := tokenizer.LoadStopwords(flags.stopwordsPath, slog.Default())
			if err != nil {
				return err
			}
			policy := sparse.Saturate
			if flags.strictLength {
				policy = sparse.Strict
			}
			engine, err := encoder.NewEngine(encoder.Options{
				Language:        flags.language,
				MaxTokenLength:  flags.maxTokenLength,
				DisableStemming: flags.disableStemming,
				Stopwords:       stopwords,
				LengthPolicy:    policy,
			})
			if err != nil {
				return err
			}
			res, err := engine.Encode(text)
			if err != nil {
				return err
			}

			out := encodeOutput{
				Indices:        res.Vector.Indices(),
				Values:         res.Vector.Values(),
				DocumentLength: res.Length,
			}
			if flags.showTokens {
				out.Tokens = res.Tokens
			}
			if flags.jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(out)
			}
			w := cmd.OutOrStdout()
			if flags.showTokens {
				fmt.Fprintf(w, "tokens: %s\n", strings.Join(res.Tokens, " "))
				sparse.Aggregate(res.Tokens).Each(func(token string, count int) {
					fmt.Fprintf(w, "term %s %d %d\n", token, sparse.Hash(token), count)
				})
			}
			for _, e := range res.Vector {
				fmt.Fprintf(w, "%d %d\n", e.Index, e.Value)
			}
			fmt.Fprintf(w, "document length: %d\n", res.Length)
			return nil
		},
	}

	cmd.Flags().StringVarP(&flags.language, "language", "l", "english", "Stemming language")
	cmd.Flags().IntVar(&flags.maxTokenLength, "max-token-length", tokenizer.DefaultMaxTokenLength, "Drop tokens longer than this many code points")
	cmd.Flags().BoolVar(&flags.disableStemming, "disable-stemming", false, "Keep tokens unstemmed")
	cmd.Flags().StringVar(&flags.stopwordsPath, "stopwords", "", "Stopword file, one word per line")
	cmd.Flags().BoolVar(&flags.strictLength, "strict-length", false, "Fail instead of saturating documents longer than 65535 tokens")
	cmd.Flags().StringVarP(&flags.file, "file", "f", "", "Read text from this file")
	cmd.Flags().BoolVar(&flags.jsonOutput, "json", false, "Print JSON")
	cmd.Flags().BoolVar(&flags.showTokens, "tokens", false, "Include the processed tokens")
	return cmd
}

func readInput(cmd *cobra.Command, file string, args []string) (string, error) {
	switch {
	case file != "" && len(args) > 0:
		return "", fmt.Errorf("pass text as arguments or --file, not both")
	case file != "":
		b, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("reading %s: %w", file, err)
		}
		return string(b), nil
	case len(args) > 0:
		return strings.Join(args, " "), nil
	default:
		return readAllString(cmd.InOrStdin())
	}
}
