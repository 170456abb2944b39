package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search papers and images at once",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		rt, err := openRuntime(ctx)
		if err != nil {
			return err
		}
		defer rt.Close()

		if err := rt.AcquireText(ctx); err != nil {
			return err
		}
		if err := rt.AcquireImages(ctx); err != nil {
			return err
		}

		res, err := rt.Searcher.SearchAll(ctx, args[0], rt.Config.Search.PanelTopK, rt.Config.Search.ImageTopK)
		if err != nil {
			return err
		}

		fmt.Println("== Papers ==")
		printPaperResults(args[0], res.Papers)
		fmt.Println("== Images ==")
		if len(res.Images) == 0 {
			fmt.Println("No images.")
		}
		for i, r := range res.Images {
			fmt.Printf("%d. [%.3f] %s\n   %s\n", i+1, r.Score, r.Filename, r.Path)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(searchCmd)
}
