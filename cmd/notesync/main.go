// Command notesync synchronises notes into a chunked knowledge store.
package main

import (
	"os"

	"github.com/custodia-labs/notesync/internal/adapters/driving/cli"
	"github.com/custodia-labs/notesync/internal/logger"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := cli.Execute(version, build); err != nil {
		logger.Error("%v", err)
		os.Exit(1)
	}
}
