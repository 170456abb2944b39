package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"docsift/internal/tui"
)

var flagTUITopics string

var tuiCmd = &cobra.Command{
	Use:   "tui [folder]",
	Short: "Interactive search; ingests folder first when given",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := ""
		if len(args) == 1 {
			dir = args[0]
		}
		return runTUI(cmd.Context(), dir, topicsFlag(cmd, flagTUITopics))
	},
}

func runTUI(ctx context.Context, ingestDir string, topics []string) error {
	rt, err := openRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	// Search works without CLIP; failures surface per query.
	if err := rt.AcquireText(ctx); err != nil {
		rt.Log.WithError(err).Warn("text embedding model unavailable")
	}
	if err := rt.AcquireImages(ctx); err != nil {
		rt.Log.WithError(err).Warn("CLIP server unavailable")
	}

	return tui.Run(tui.Config{
		Searcher:   rt.Searcher,
		Ingester:   rt.Indexer,
		Papers:     rt.Papers,
		Images:     rt.Images,
		TextModel:  rt.Config.Ollama.TextModel,
		ImageModel: rt.Config.CLIP.Model,
		PaperTopK:  rt.Config.Search.PanelTopK,
		ImageTopK:  rt.Config.Search.ImageTopK,
		IngestDir:  ingestDir,
		Topics:     topics,
	})
}

func init() {
	tuiCmd.Flags().StringVar(&flagTUITopics, "topics", "", "comma separated candidate topics for the initial ingest")
	rootCmd.AddCommand(tuiCmd)
}
