package main

import (
	"os"

	"github.com/mcoot/credaudit/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
