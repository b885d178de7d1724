package main

import (
	"fmt"
	"os"

	"github.com/dalemusser/giftbubble/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "drawctl:", err)
		os.Exit(1)
	}
}
