package cmd

import (
	"fmt"
	"os"
	"watsearch-backend/lib/serviceutil"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "outline-cli",
	Short: "outline-cli parses saved course outline pages and runs the ingestion pipeline from the command line.",
}

func Execute() {
	if err := rootCmd.ExecuteContext(serviceutil.SignalContext()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
