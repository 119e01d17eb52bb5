package main

import (
	"os"

	"github.com/tchtranslate/portal/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
