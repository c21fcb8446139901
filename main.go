package main

import (
	"context"
	"fmt"
	"os"

	"github.com/smazurov/metricsd/cmd"
)

func main() {
	if err := cmd.NewRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
