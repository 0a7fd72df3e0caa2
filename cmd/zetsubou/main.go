// zetsubou - command-line client for the zetsubou.life platform
//
// Runs AI processing tools on your files, manages cloud storage, and
// talks to the hosted chat models. Configure once with 'zetsubou init';
// every other command reads the saved key (or ZETSUBOU_API_KEY).
package main

import (
	"fmt"
	"os"

	"github.com/zetsubou-life/zetsubou-go/internal/commands"
)

// Version information (set by goreleaser)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.SetVersionInfo(version, commit, date)

	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
