package main

import (
	"context"
	"fmt"
	"os"

	"github.com/micro-manager/micro-manager-sub007/internal/commands/cli"

	// Builtin adapter modules.
	_ "github.com/micro-manager/micro-manager-sub007/internal/adapters/demo"
)

// main builds the command tree and runs it.
func main() {
	rootCmd, err := cli.NewRootCommand()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
