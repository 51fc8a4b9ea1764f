package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/harrison/ygrep/internal/cmd"
)

func main() {
	rootCmd := cmd.NewRootCommand()

	if err := rootCmd.Execute(); err != nil {
		if errors.Is(err, cmd.ErrHadErrors) {
			os.Exit(2)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
