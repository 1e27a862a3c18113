package main

import (
	"github.com/cdil-bc/canvas-discussions/src/cli"
)

func main() {
	cli.RootCommand.Execute()
}
