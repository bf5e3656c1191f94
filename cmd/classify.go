package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/earlyspark/scrollguard/internal/classify"
	"github.com/earlyspark/scrollguard/internal/config"
	"github.com/earlyspark/scrollguard/internal/content"
)

var flagClassifyApp string

var classifyCmd = &cobra.Command{
	Use:   "classify [text]",
	Short: "Classify a single piece of text and print the verdict",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(flagConfig)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		text := content.Prepare(strings.Join(args, " "))
		if text == "" {
			return fmt.Errorf("nothing to classify")
		}

		cctx := &classify.Context{
			SourceApp:     flagClassifyApp,
			ContentLength: len([]rune(text)),
			Category:      classify.DetectCategory(text),
		}
		v := buildClassifier(cfg)(cmd.Context(), text, cctx)

		verdict := "productive"
		if !v.Productive {
			verdict = "unproductive"
		}
		fmt.Printf("Verdict: %s\n", verdict)
		fmt.Printf("Confidence: %.2f\n", v.Confidence)
		fmt.Printf("Rationale: %s\n", v.Rationale)
		fmt.Printf("Category: %s\n", cctx.Category)
		fmt.Printf("Fingerprint: %s\n", content.Fingerprint(text))
		return nil
	},
}

func init() {
	classifyCmd.Flags().StringVar(&flagClassifyApp, "app", "", "app identifier for context adjustment")
}
