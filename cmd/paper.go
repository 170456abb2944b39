package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"docsift/internal/domain"
	"docsift/internal/index"
	"docsift/internal/retrieval"
	"docsift/internal/store"
)

var (
	flagTopics    string
	flagPaperRoot string
	flagPaperK    int
	flagListTopic string
)

var addPaperCmd = &cobra.Command{
	Use:   "add-paper <path>",
	Short: "Classify, move and index one PDF",
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

		root := flagPaperRoot
		if root == "" {
			root = rt.Config.Ingest.RootDir
		}
		res, err := rt.Indexer.IngestPaper(ctx, args[0], index.PaperOptions{
			Topics: topicsFlag(cmd, flagTopics),
			Root:   root,
		})
		if err != nil {
			if errors.Is(err, domain.ErrNoText) {
				return fmt.Errorf("%s has no extractable text (scanned PDF?): %w", args[0], err)
			}
			return err
		}

		fmt.Printf("Indexed %s\n", res.Filename)
		if res.Classified {
			fmt.Printf("  Topic:  %s (score %.3f)\n", res.Topic, res.Score)
		} else {
			fmt.Printf("  Topic:  %s\n", res.Topic)
		}
		fmt.Printf("  Pages:  %d\n", res.Pages)
		fmt.Printf("  Chunks: %d (+1 summary)\n", res.Chunks)
		fmt.Printf("  Path:   %s\n", res.Path)
		if res.RelocationErr != nil {
			fmt.Fprintf(os.Stderr, "warning: file was not moved: %v\n", res.RelocationErr)
		}
		if res.PreviousPath != "" {
			fmt.Fprintf(os.Stderr, "warning: replaced entries previously indexed from %s\n", res.PreviousPath)
		}
		return nil
	},
}

var searchPaperCmd = &cobra.Command{
	Use:   "search-paper <query>",
	Short: "Semantic search over indexed paper chunks",
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
		results, err := rt.Searcher.SearchPapers(ctx, args[0], flagPaperK)
		if err != nil {
			return err
		}
		printPaperResults(args[0], results)
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List indexed papers with topic and chunk count",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		rt, err := openRuntime(ctx)
		if err != nil {
			return err
		}
		defer rt.Close()

		docs, err := rt.Papers.Documents(ctx, flagListTopic)
		if err != nil {
			return err
		}
		printDocuments(docs)
		return nil
	},
}

func printPaperResults(query string, results []retrieval.Result) {
	if len(results) == 0 {
		fmt.Printf("No results for %q\n", query)
		return
	}
	fmt.Printf("Results for %q:\n\n", query)
	for i, r := range results {
		tag := ""
		if r.IsSummary {
			tag = " [SUMMARY MATCH]"
		}
		fmt.Printf("%d. %s (page %d)%s\n", i+1, r.Filename, r.PageNumber, tag)
		fmt.Printf("   Topic: %s  Score: %.3f\n", r.Topic, r.Score)
		fmt.Printf("   Path:  %s\n", r.Path)
		fmt.Printf("   %s\n\n", r.Snippet)
	}
}

func printDocuments(docs []store.DocumentSummary) {
	if len(docs) == 0 {
		fmt.Println("No papers indexed.")
		return
	}
	for _, d := range docs {
		fmt.Printf("%-40s %-14s %4d chunks  %s\n", d.Filename, d.Topic, d.Chunks, d.Path)
	}
	fmt.Printf("\n%d papers\n", len(docs))
}

func init() {
	addPaperCmd.Flags().StringVar(&flagTopics, "topics", "", "comma separated candidate topics (empty disables classification)")
	addPaperCmd.Flags().StringVar(&flagPaperRoot, "root", "", "directory that holds the topic folders (default: the file's directory)")
	searchPaperCmd.Flags().IntVar(&flagPaperK, "k", 0, "number of results (default search.paper_top_k)")
	listCmd.Flags().StringVar(&flagListTopic, "topic", "", "only list papers with this topic")
	rootCmd.AddCommand(addPaperCmd, searchPaperCmd, listCmd)
}
