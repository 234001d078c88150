// Command rwconn inspects and exercises read/write replica connections.
package main

import (
	"os"

	"github.com/satishbabariya/rwconn/cli/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
