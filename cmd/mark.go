package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var markStage string

var markCmd = &cobra.Command{
	Use:   "mark [source-url]",
	Short: "Advance a processing flag on one catalog record",
	Long: `Mark records a completed processing stage for one document.
External extraction, cleaning, chunking, and embedding stages call this
after finishing a document so the registry tracks pipeline progress.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sourceURL := args[0]
		ok, err := newRegistryManager().MarkProcessed(sourceURL, markStage)
		if err != nil {
			return err
		}
		if !ok {
			return eris.Errorf("mark: no record with source_url %s", sourceURL)
		}
		fmt.Printf("marked %s: %s\n", sourceURL, markStage)
		return nil
	},
}

func init() {
	markCmd.Flags().StringVar(&markStage, "stage", "", "stage to set: text_extracted, cleaned, chunked or embedded")
	_ = markCmd.MarkFlagRequired("stage")
	rootCmd.AddCommand(markCmd)
}
