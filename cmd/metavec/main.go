package main

import (
	"os"

	"github.com/viant/metavec/internal/cli"
)

var version = "dev"

func main() {
	os.Exit(cli.Execute(version))
}
