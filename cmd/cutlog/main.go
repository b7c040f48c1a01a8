package main

import (
	"os"

	"github.com/hyp3rd/cutlog/internal/cli"
)

func main() {
	err := cli.NewRootCommand().Execute()
	if err != nil {
		os.Exit(1)
	}
}
