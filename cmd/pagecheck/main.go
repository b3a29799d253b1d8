package main

import (
	"fmt"
	"os"

	"github.com/dgnsrekt/pagecheck/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "pagecheck:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
