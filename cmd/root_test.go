package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRootCommandRegistration(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	for _, want := range []string{"ask", "serve", "scrape", "validate", "stats", "mark"} {
		assert.True(t, names[want], "missing subcommand %s", want)
	}
}

func TestScrapeCommandFlags(t *testing.T) {
	assert.NotNil(t, scrapeCmd.Flags().Lookup("sources"))
	assert.NotNil(t, scrapeCmd.Flags().Lookup("source"))
	assert.NotNil(t, validateCmd.Flags().Lookup("dedupe"))
	assert.NotNil(t, askCmd.Flags().Lookup("top-k"))
	assert.NotNil(t, serveCmd.Flags().Lookup("port"))
	assert.NotNil(t, markCmd.Flags().Lookup("stage"))
}
