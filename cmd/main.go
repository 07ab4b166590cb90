package main

import (
	"os"

	"github.com/shopspring/decimal"

	"github.com/tinoosan/shopledger/internal/commands"
)

func main() {
	// Report figures are emitted as JSON numbers by both the API and the CLI.
	decimal.MarshalJSONWithoutQuotes = true
	if err := commands.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
