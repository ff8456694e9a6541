package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var validateDedupe bool

// validateSummary tallies one validation pass over the whole catalog.
type validateSummary struct {
	Total           int            `json:"total"`
	Valid           int            `json:"valid"`
	MissingFields   int            `json:"missing_fields"`
	NeedsRedownload int            `json:"needs_redownload"`
	DupesRemoved    int            `json:"dupes_removed,omitempty"`
	ByMissingField  map[string]int `json:"by_missing_field,omitempty"`
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check every catalog entry against required fields and on-disk artifacts",
	RunE: func(cmd *cobra.Command, args []string) error {
		manager := newRegistryManager()

		summary := validateSummary{ByMissingField: map[string]int{}}

		if validateDedupe {
			removed, err := manager.DedupeByRawPath()
			if err != nil {
				return err
			}
			summary.DupesRemoved = removed
			if removed > 0 {
				zap.L().Info("removed duplicate records", zap.Int("count", removed))
			}
		}

		docs, err := manager.ListAll()
		if err != nil {
			return err
		}
		summary.Total = len(docs)

		for _, doc := range docs {
			result, err := manager.Validate(doc.SourceURL, cfg.Data.Dir)
			if err != nil {
				return err
			}
			switch {
			case result.IsValid:
				summary.Valid++
			case result.NeedsRedownload:
				summary.NeedsRedownload++
				zap.L().Warn("artifact needs redownload",
					zap.String("source_url", doc.SourceURL),
					zap.String("reason", result.Reason),
				)
			default:
				summary.MissingFields++
				for _, f := range result.MissingFields {
					summary.ByMissingField[f]++
				}
			}
		}

		return json.NewEncoder(os.Stdout).Encode(summary)
	},
}

func init() {
	validateCmd.Flags().BoolVar(&validateDedupe, "dedupe", false, "remove records sharing a raw_path before validating")
	rootCmd.AddCommand(validateCmd)
}
