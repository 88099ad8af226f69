package main

import (
	"fmt"
	"os"
	_ "time/tzdata"

	"finance_automation/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
