package main

import (
	"os"

	"github.com/bostonrobbie/Manus-Dashboard-sub003/cmd/analytics/commands"
)

// main is the entry point for the analytics CLI
// ⭐ 통합 CLI 진입점: go run ./cmd/analytics [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
