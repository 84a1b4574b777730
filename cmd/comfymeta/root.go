package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/comfygallery/comfymeta/extract"
)

var (
	flagNodeTypes string
	flagVerbose   bool
)

var rootCmd = &cobra.Command{
	Use:   "comfymeta",
	Short: "Extract and search generation metadata from ComfyUI images",
	Long: `Comfymeta reads the workflow and prompt graphs that ComfyUI embeds in
the PNG files it renders, and extracts the generation parameters:
positive/negative prompts, model, sampler, scheduler, steps, CFG scale,
seed and LoRA stack.

Support for additional community node packs is configured, not coded:
pass a YAML overlay with --node-types to extend the recognized type sets.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := slog.LevelWarn
		if flagVerbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagNodeTypes, "node-types", "", "YAML overlay extending the recognized node-type sets")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Enable debug logging")
}

// newExtractor builds the engine honoring the --node-types overlay.
func newExtractor() (*extract.Extractor, error) {
	if flagNodeTypes == "" {
		return extract.New(), nil
	}
	ts, err := extract.LoadTypeSets(flagNodeTypes)
	if err != nil {
		return nil, err
	}
	return extract.New(extract.WithTypeSets(ts)), nil
}
