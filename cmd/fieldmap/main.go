package main

import (
	"fmt"
	"os"

	"github.com/ngmaloney/marine-fieldmap/internal/cli"
)

func main() {
	if err := cli.Root.Execute(); err != nil {
		fmt.Printf("Error running fieldmap: %v\n", err)
		os.Exit(1)
	}
}
