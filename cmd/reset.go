package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"docsift/internal/store"
)

var resetCmd = &cobra.Command{
	Use:       "reset <papers|images>",
	Short:     "Remove every entry from a collection (files on disk are untouched)",
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{store.Papers, store.Images},
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		rt, err := openRuntime(ctx)
		if err != nil {
			return err
		}
		defer rt.Close()

		c := rt.Papers
		if args[0] == store.Images {
			c = rt.Images
		}
		n, err := c.Count(ctx)
		if err != nil {
			return err
		}
		if err := c.Reset(ctx); err != nil {
			return err
		}
		fmt.Printf("Removed %d entries from %s\n", n, args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(resetCmd)
}
