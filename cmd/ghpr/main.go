package main

import (
	"os"

	"github.com/florenceboettger/ghpr-tools/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
