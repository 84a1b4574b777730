package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/comfygallery/comfymeta/extract"
	"github.com/comfygallery/comfymeta/pngmeta"
)

var flagShowJSON bool

// display order for text output
var showFieldOrder = []string{
	extract.FieldPositive,
	extract.FieldNegative,
	extract.FieldModel,
	extract.FieldSampler,
	extract.FieldScheduler,
	extract.FieldSteps,
	extract.FieldCFGScale,
	extract.FieldSeed,
	extract.FieldLoras,
}

var showCmd = &cobra.Command{
	Use:   "show {image.png | graph.json}",
	Short: "Print the generation parameters of a single image or graph file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		extractor, err := newExtractor()
		if err != nil {
			return err
		}

		meta, err := pngmeta.ReadFile(args[0])
		if err != nil {
			return err
		}
		if meta.Empty() {
			return fmt.Errorf("%s carries no ComfyUI metadata", args[0])
		}

		fields := extractor.FromRaw(meta.Prompt, meta.Workflow)

		if flagShowJSON {
			out, err := json.MarshalIndent(fields, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		}

		for _, name := range showFieldOrder {
			value := fields.Get(name)
			if value == "" {
				value = "N/A"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%-10s %s\n", name+":", value)
		}
		return nil
	},
}

func init() {
	showCmd.Flags().BoolVar(&flagShowJSON, "json", false, "Output as JSON")
	rootCmd.AddCommand(showCmd)
}
