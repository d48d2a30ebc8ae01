package cmd

import (
	"fmt"
	"log"
	"os"
	"strings"
	"watsearch-backend/lib/scrapers/outline"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(listingsCmd)
}

var listingsCmd = &cobra.Command{
	Use:   "listings <file>",
	Short: "Parses a saved listings page and prints its course rows grouped by term.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		content, err := os.ReadFile(args[0])
		if err != nil {
			log.Fatal(err)
		}

		listings := outline.ParseListings(string(content))
		if len(listings) == 0 {
			fmt.Println("No course listings recognized.")
			return
		}

		terms, byTerm := outline.GroupByTerm(listings)
		for _, term := range terms {
			label := term
			if label == "" {
				label = "(no term)"
			}
			fmt.Println(label)

			t := table.NewWriter()
			t.SetOutputMirror(os.Stdout)
			t.AppendHeader(table.Row{"Code", "Title", "Sections", "Outline"})
			for _, l := range byTerm[term] {
				t.AppendRow(table.Row{
					l.Code,
					l.Title,
					strings.Join(l.Sections, ", "),
					l.ViewUrl,
				})
			}
			t.SetStyle(table.StyleRounded)
			t.Render()
		}
	},
}
