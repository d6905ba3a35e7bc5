package main

import (
	"os"

	"github.com/lucasalvarezlacasa/amazon-bedrock/internal/cli"
)

var version = "dev"

func main() {
	os.Exit(cli.Execute(version))
}
