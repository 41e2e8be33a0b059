package cmd

import (
	"errors"
	"fmt"
	"io"
	"io/fs"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/JakeFAU/jersey-gallery/internal/crawler"
	"github.com/JakeFAU/jersey-gallery/internal/store"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Shows crawl progress recorded in the dataset file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			return renderStatus(cmd.OutOrStdout(), appInstance.Config.Store.Path, appInstance.Config.Crawler.TotalPages)
		},
	}
}

// renderStatus prints a progress summary of the dataset at path.
func renderStatus(w io.Writer, path string, totalPages int) error {
	ds, err := store.ReadDataset(path)
	if errors.Is(err, fs.ErrNotExist) {
		_, werr := fmt.Fprintf(w, "no dataset at %s yet; run `jerseys crawl` first\n", path)
		return werr
	}
	if err != nil {
		return fmt.Errorf("status: %w", err)
	}

	state := ds.State()
	if ds.TotalPages > 0 {
		totalPages = ds.TotalPages
	}
	perPage := make(map[int]int)
	imageCount := 0
	for _, j := range ds.Jerseys {
		perPage[j.Page]++
		imageCount += len(j.Images)
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Metric", "Value"})
	t.AppendRow(table.Row{"Dataset", path})
	t.AppendRow(table.Row{"Jerseys", len(ds.Jerseys)})
	t.AppendRow(table.Row{"Images", imageCount})
	t.AppendRow(table.Row{"Pages with jerseys", len(perPage)})
	t.AppendRow(table.Row{"Last completed page", fmt.Sprintf("%d / %d", state.LastCompletedPage, totalPages)})
	t.AppendRow(table.Row{"First jersey", jerseyLabel(ds.Jerseys, 0)})
	t.AppendRow(table.Row{"Last jersey", jerseyLabel(ds.Jerseys, len(ds.Jerseys)-1)})
	t.AppendRow(table.Row{"Complete", state.LastCompletedPage >= totalPages})
	t.SetStyle(table.StyleRounded)
	t.Render()
	return nil
}

func jerseyLabel(jerseys []crawler.Jersey, i int) string {
	if i < 0 || i >= len(jerseys) {
		return "-"
	}
	return fmt.Sprintf("%s (page %d)", jerseys[i].Title, jerseys[i].Page)
}
