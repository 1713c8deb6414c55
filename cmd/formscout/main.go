package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/formscout/formscout/pkg/lifecycle"
)

func main() {
	ctx, stop := lifecycle.Notify(context.Background())
	defer stop()

	root := &cobra.Command{
		Use:   "formscout",
		Short: "Locate and classify template regions in parsed tender documents",
	}

	root.AddCommand(extractCmd())

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
