package main

import (
	"fmt"
	"os"

	"github.com/cmlabs-hris/hris-attendance-go/internal/cli"
)

func main() {
	if err := cli.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
