package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/qanoon-labs/qanoon-cli/internal/store"
)

var (
	askTopK int
	askJSON bool
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer a legal question over the embedded corpus",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initQueryEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		question := strings.Join(args, " ")
		result, err := env.Pipeline.Ask(cmd.Context(), question, askTopK)
		if err != nil {
			return err
		}

		logAnsweredQuery(cmd.Context(), env.QueryLog, result.Query, result.Answer, len(result.Sources), result.Metadata)

		if askJSON {
			return json.NewEncoder(os.Stdout).Encode(result)
		}

		fmt.Println(result.Answer)
		if len(result.Sources) > 0 {
			fmt.Println("\nSources:")
			for _, src := range result.Sources {
				line := fmt.Sprintf("  [%d] %s", src.Position, src.Title)
				if src.Year != nil {
					line += fmt.Sprintf(" (%d)", *src.Year)
				}
				fmt.Println(line)
			}
		}
		return nil
	},
}

// logAnsweredQuery records a successful answer. Logging failures are warned,
// never surfaced: the user already has their answer.
func logAnsweredQuery(ctx context.Context, log store.QueryLog, query, answer string, cited int, meta map[string]any) {
	entry := store.QueryLogEntry{
		Query:        query,
		SourcesCited: cited,
		AnswerChars:  utf8.RuneCountInString(answer),
	}
	if v, ok := meta["translated"].(bool); ok {
		entry.Translated = v
	}
	if v, ok := meta["chunks_retrieved"].(int); ok {
		entry.ChunksRetrieved = v
	}
	if v, ok := meta["chunks_in_context"].(int); ok {
		entry.ChunksInContext = v
	}
	if v, ok := meta["duration_ms"].(int64); ok {
		entry.DurationMS = v
	}
	if _, err := log.Record(ctx, entry); err != nil {
		zap.L().Warn("record query log entry", zap.Error(err))
	}
}

func init() {
	askCmd.Flags().IntVar(&askTopK, "top-k", 0, "similarity search pool size (default from config)")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "print the full result as JSON")
	rootCmd.AddCommand(askCmd)
}
