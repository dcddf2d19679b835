package main

import (
	"os"

	"github.com/danieljhkim/arucal/internal/cli"
	"github.com/danieljhkim/arucal/internal/vision/cv"
)

var version = "dev"

func main() {
	cli.SetVersion(version)
	cli.SetBackend(cv.NewBackend())

	if err := cli.Execute(); err != nil {
		cli.PrintError(err.Error())
		os.Exit(1)
	}
}
