package main

import (
	"os"

	"github.com/miosa/modq/cmd"
)

var version = "dev"

func main() {
	os.Exit(cmd.Execute(version))
}
