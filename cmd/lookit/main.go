package main

import (
	"github.com/mekline/lookit-data-processing/internal/cli"
	"github.com/mekline/lookit-data-processing/internal/logging"
)

func main() {
	logging.Init()
	cli.Execute()
}
