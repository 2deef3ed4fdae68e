// Command piku is the single-host git-push PaaS core: detection, building,
// worker reconciliation, vassal and nginx config generation, and the
// SSH-gated git receive path.
package main

import (
	"os"

	"github.com/piku-host/piku/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
