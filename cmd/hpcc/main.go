package main

import (
	"os"

	"github.com/hpcc-systems/gohpcc/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
