package main

import (
	"os"

	veritycmder "github.com/papercomputeco/verity/cmd/verity"
)

func main() {
	cmd := veritycmder.NewVerityCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
