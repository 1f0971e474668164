// Command paplin drives USB robotic arms from the command line or over HTTP.
package main

import (
	"os"

	"github.com/ArranJacques/paplin/cmd/paplin/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
