package main

import (
	"fmt"
	"os"
)

var version = "dev"

func main() {
	cmd := newRootCmd(newApp())
	cmd.Version = version
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
