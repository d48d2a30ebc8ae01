package cmd

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"watsearch-backend/lib/scrapers/outline"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(parseCmd)
}

var parseCmd = &cobra.Command{
	Use:   "parse <file>",
	Short: "Parses a single saved outline page and prints the normalized record as JSON.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		content, err := os.ReadFile(args[0])
		if err != nil {
			log.Fatal(err)
		}

		course, err := outline.ParseOutline(string(content), filepath.Base(args[0]))
		if err != nil {
			log.Fatal(err)
		}

		out, err := json.MarshalIndent(course, "", "  ")
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println(string(out))
	},
}
