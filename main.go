package main

import (
	"github.com/sidkik/cargo-remote/cmd"
	"github.com/sidkik/cargo-remote/cmd/util"
)

func main() {
	defer util.HandlePanic()
	cmd.Execute()
}
