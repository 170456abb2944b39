package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var flagImageK int

var indexImageCmd = &cobra.Command{
	Use:   "index-image <path>",
	Short: "Index one image, or every image directly inside a folder",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		info, err := os.Stat(args[0])
		if err != nil {
			return err
		}

		rt, err := openRuntime(ctx)
		if err != nil {
			return err
		}
		defer rt.Close()

		if err := rt.AcquireImages(ctx); err != nil {
			return err
		}
		stats, err := rt.Indexer.IndexImages(ctx, args[0], info.IsDir())
		if stats != nil {
			fmt.Printf("Images: %d indexed, %d failed, %d skipped\n",
				stats.ImagesIndexed, stats.ImagesFailed, stats.Skipped)
			for _, f := range stats.Failures {
				fmt.Fprintf(os.Stderr, "  %s: %s (%v)\n", f.Path, f.Reason, f.Err)
			}
		}
		return err
	},
}

var searchImageCmd = &cobra.Command{
	Use:   "search-image <query>",
	Short: "Find images matching a text description",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		rt, err := openRuntime(ctx)
		if err != nil {
			return err
		}
		defer rt.Close()

		if err := rt.AcquireImages(ctx); err != nil {
			return err
		}
		results, err := rt.Searcher.SearchImages(ctx, args[0], flagImageK)
		if err != nil {
			return err
		}
		if len(results) == 0 {
			fmt.Printf("No images match %q\n", args[0])
			return nil
		}
		for i, r := range results {
			fmt.Printf("%d. [%.3f] %s\n   %s\n", i+1, r.Score, r.Filename, r.Path)
		}
		return nil
	},
}

func init() {
	searchImageCmd.Flags().IntVar(&flagImageK, "k", 0, "number of results (default search.image_top_k)")
	rootCmd.AddCommand(indexImageCmd, searchImageCmd)
}
