package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"docsift/internal/index"
)

var (
	flagIngestTopics string
	flagPapersOnly   bool
	flagImagesOnly   bool
	flagNoRecurse    bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <folder>",
	Short: "Index every PDF and image under a folder",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		root, err := filepath.Abs(args[0])
		if err != nil {
			return err
		}

		rt, err := openRuntime(ctx)
		if err != nil {
			return err
		}
		defer rt.Close()

		papersOnly := flagPapersOnly
		if !flagImagesOnly {
			if err := rt.AcquireText(ctx); err != nil {
				return err
			}
		}
		if !papersOnly {
			if err := rt.AcquireImages(ctx); err != nil {
				if !flagImagesOnly {
					// Papers can still be ingested without the CLIP server.
					rt.Log.WithError(err).Warn("CLIP server unavailable, ingesting papers only")
					papersOnly = true
				} else {
					return err
				}
			}
		}

		fmt.Printf("Ingesting %s...\n", root)
		start := time.Now()

		stats, err := rt.Indexer.IngestFolder(ctx, root, index.FolderOptions{
			Topics:     topicsFlag(cmd, flagIngestTopics),
			Recursive:  !flagNoRecurse,
			PapersOnly: papersOnly,
			ImagesOnly: flagImagesOnly,
		})
		elapsed := time.Since(start)

		if stats != nil {
			fmt.Printf("\nDone in %s\n", elapsed.Round(time.Millisecond))
			fmt.Printf("  Files:   %d total, %d skipped\n", stats.FilesTotal, stats.Skipped)
			fmt.Printf("  Papers:  %d indexed, %d failed (%d chunks)\n",
				stats.PapersIndexed, stats.PapersFailed, stats.ChunksTotal)
			fmt.Printf("  Images:  %d indexed, %d failed\n", stats.ImagesIndexed, stats.ImagesFailed)
			for _, f := range stats.Failures {
				fmt.Fprintf(os.Stderr, "  failed %s: %s\n", f.Path, f.Reason)
			}
		}

		return err
	},
}

func init() {
	ingestCmd.Flags().StringVar(&flagIngestTopics, "topics", "", "comma separated candidate topics (empty disables classification)")
	ingestCmd.Flags().BoolVar(&flagPapersOnly, "papers-only", false, "skip images")
	ingestCmd.Flags().BoolVar(&flagImagesOnly, "images-only", false, "skip PDFs")
	ingestCmd.Flags().BoolVar(&flagNoRecurse, "no-recurse", false, "only files directly inside the folder")
	ingestCmd.MarkFlagsMutuallyExclusive("papers-only", "images-only")
	rootCmd.AddCommand(ingestCmd)
}
