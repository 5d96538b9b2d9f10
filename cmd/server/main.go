package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jeanchristophedibi/fanaf-back-next-sub000/internal/cli"
)

// main hands off to the command tree. Wiring lives in internal/engine so the
// server and the back-office commands share it.
func main() {
	if err := cli.NewRootCommand().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
