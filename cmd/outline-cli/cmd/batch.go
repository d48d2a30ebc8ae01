package cmd

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"watsearch-backend/lib/scrapers/outline"
	"watsearch-backend/lib/sqliteutil"
	"watsearch-backend/services/outlines"
	"watsearch-backend/services/outlines/db"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var batchDb string
var batchOwner string
var batchTerms []string
var batchCacheDir string

func init() {
	batchCmd.Flags().StringVar(&batchDb, "db", "outlines.db", "Path of the sqlite database to store courses in.")
	batchCmd.Flags().StringVar(&batchOwner, "owner", "local", "Owner key the courses are stored under.")
	batchCmd.Flags().StringSliceVar(&batchTerms, "terms", nil, "Only process listings of these terms.")
	batchCmd.Flags().StringVar(&batchCacheDir, "cache-dir", "", "Directory of pre-downloaded outline .html files to use instead of fetching.")
	rootCmd.AddCommand(batchCmd)
}

var batchCmd = &cobra.Command{
	Use:   "batch <listings-file>",
	Short: "Runs the full pipeline over a saved listings page: fetch, parse and store every outline.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		content, err := os.ReadFile(args[0])
		if err != nil {
			log.Fatal(err)
		}

		database, err := sqliteutil.OpenDB(db.Schema, batchDb)
		if err != nil {
			log.Fatal(err)
		}
		defer database.Close()

		service := outlines.NewService(database, outlines.ServiceOptions{})
		res, err := service.ProcessListings(
			cmd.Context(), batchOwner, string(content),
			outlines.UploadOptions{
				Terms:  batchTerms,
				Cached: readCacheDir(batchCacheDir),
				OnEvent: func(e outlines.Event) {
					switch e.Kind {
					case outlines.EventProgress:
						fmt.Printf(
							"[%d/%d] ok=%d fail=%d %s\n",
							e.Progress.Current,
							e.Progress.Total,
							e.Progress.SuccessCount,
							e.Progress.FailCount,
							e.Progress.CurrentUrl,
						)
					case outlines.EventCancelled:
						fmt.Println("Cancelled.")
					}
				},
			},
		)
		if err != nil {
			log.Fatal(err)
		}

		fmt.Println(res.Message)
		fmt.Printf("added=%d updated=%d\n", res.Added, res.Updated)

		if len(res.Errors) > 0 {
			t := table.NewWriter()
			t.SetOutputMirror(os.Stdout)
			t.AppendHeader(table.Row{"Code", "Term", "Reason"})
			for _, failure := range res.Errors {
				t.AppendRow(table.Row{
					failure.Listing.Code,
					failure.Listing.Term,
					failure.Reason,
				})
			}
			t.SetStyle(table.StyleRounded)
			t.Render()
		}
	},
}

// readCacheDir loads pre-downloaded outline pages and keys them by
// the (code, term) each one parses to. Files that don't parse can't
// be keyed and are skipped.
func readCacheDir(dir string) map[outlines.CourseKey]string {
	if dir == "" {
		return nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		log.Fatal(err)
	}

	cached := map[outlines.CourseKey]string{}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".html") {
			continue
		}
		content, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			log.Fatal(err)
		}
		course, err := outline.ParseOutline(string(content), e.Name())
		if err != nil {
			fmt.Printf("Skipping cache file %s: %v\n", e.Name(), err)
			continue
		}
		cached[outlines.CourseKey{Code: course.Code, Term: course.Term}] = string(content)
	}
	return cached
}
