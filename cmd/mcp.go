package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"docsift/internal/config"
	"docsift/internal/index"
	"docsift/internal/retrieval"
	"docsift/internal/store"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start an MCP server exposing paper and image search tools",
	RunE:  runMCP,
}

func runMCP(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	rt, err := openRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	s := newMCPServer(rt.Searcher, rt.Papers, rt.Indexer, rt.Config.Ingest.RootDir)
	return mcpserver.ServeStdio(s)
}

// Narrow views of the runtime so handlers can be tested with fakes.
type (
	paperSearcher interface {
		SearchPapers(ctx context.Context, query string, k int) ([]retrieval.Result, error)
		SearchImages(ctx context.Context, query string, k int) ([]retrieval.Result, error)
	}
	paperLister interface {
		Documents(ctx context.Context, topic string) ([]store.DocumentSummary, error)
	}
	paperIngester interface {
		IngestPaper(ctx context.Context, path string, opts index.PaperOptions) (*index.PaperResult, error)
	}
)

func newMCPServer(search paperSearcher, papers paperLister, ing paperIngester, defaultRoot string) *mcpserver.MCPServer {
	s := mcpserver.NewMCPServer("docsift", "1.0.0", mcpserver.WithToolCapabilities(false))

	s.AddTool(searchPapersTool(), makeSearchPapersHandler(search))
	s.AddTool(searchImagesTool(), makeSearchImagesHandler(search))
	s.AddTool(listIndexedPapersTool(), makeListPapersHandler(papers))
	s.AddTool(ingestPaperTool(), makeIngestPaperHandler(ing, defaultRoot))
	return s
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

// --- Tool schema builders ---

var readOnlyAnnotation = mcp.ToolAnnotation{
	ReadOnlyHint:    mcp.ToBoolPtr(true),
	DestructiveHint: mcp.ToBoolPtr(false),
	IdempotentHint:  mcp.ToBoolPtr(true),
	OpenWorldHint:   mcp.ToBoolPtr(false),
}

// Ingestion moves the file into a topic folder.
var ingestAnnotation = mcp.ToolAnnotation{
	ReadOnlyHint:    mcp.ToBoolPtr(false),
	DestructiveHint: mcp.ToBoolPtr(true),
	IdempotentHint:  mcp.ToBoolPtr(true),
	OpenWorldHint:   mcp.ToBoolPtr(false),
}

func searchPapersTool() mcp.Tool {
	return mcp.NewTool("search_papers",
		mcp.WithDescription("Semantically search indexed research papers. Returns matching chunks with filename, page, topic and score (1 - distance)."),
		mcp.WithToolAnnotation(readOnlyAnnotation),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Natural language description of what to find"),
		),
		mcp.WithNumber("k",
			mcp.Description("Maximum number of results (default: configured search.paper_top_k)"),
		),
	)
}

func searchImagesTool() mcp.Tool {
	return mcp.NewTool("search_images",
		mcp.WithDescription("Find indexed images matching a text description using a cross-modal (CLIP) embedding."),
		mcp.WithToolAnnotation(readOnlyAnnotation),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Text description of the image"),
		),
		mcp.WithNumber("k",
			mcp.Description("Maximum number of results (default: configured search.image_top_k)"),
		),
	)
}

func listIndexedPapersTool() mcp.Tool {
	return mcp.NewTool("list_indexed_papers",
		mcp.WithDescription("List all indexed papers with their topic, location and chunk count."),
		mcp.WithToolAnnotation(readOnlyAnnotation),
		mcp.WithString("topic",
			mcp.Description("Optional topic filter (e.g. 'SGG', 'NLP'). Case-insensitive."),
		),
	)
}

func ingestPaperTool() mcp.Tool {
	return mcp.NewTool("ingest_paper",
		mcp.WithDescription("Index a PDF: extract text, classify it into a topic, move it into the topic folder and store its chunks."),
		mcp.WithToolAnnotation(ingestAnnotation),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Path of the PDF to ingest"),
		),
		mcp.WithString("topics",
			mcp.Description("Comma separated candidate topics; omit to use the configured ones"),
		),
		mcp.WithString("root",
			mcp.Description("Directory holding the topic folders; defaults to the configured root or the file's directory"),
		),
	)
}

// --- Handler factories ---

func makeSearchPapersHandler(s paperSearcher) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query := req.GetString("query", "")
		if strings.TrimSpace(query) == "" {
			return mcp.NewToolResultError("query is required"), nil
		}
		k := req.GetInt("k", 0) // 0 lets the searcher apply the configured default

		results, err := s.SearchPapers(ctx, query, k)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
		}
		return mcp.NewToolResultText(formatPaperResults(query, results)), nil
	}
}

func makeSearchImagesHandler(s paperSearcher) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query := req.GetString("query", "")
		if strings.TrimSpace(query) == "" {
			return mcp.NewToolResultError("query is required"), nil
		}
		k := req.GetInt("k", 0)

		results, err := s.SearchImages(ctx, query, k)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
		}
		return mcp.NewToolResultText(formatImageResults(query, results)), nil
	}
}

func makeListPapersHandler(papers paperLister) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		topic := strings.TrimSpace(req.GetString("topic", ""))

		docs, err := papers.Documents(ctx, topic)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("list papers failed: %v", err)), nil
		}

		var sb strings.Builder
		if topic != "" {
			fmt.Fprintf(&sb, "## Indexed papers (%d, topic: %s)\n\n", len(docs), topic)
		} else {
			fmt.Fprintf(&sb, "## Indexed papers (%d)\n\n", len(docs))
		}
		for _, d := range docs {
			fmt.Fprintf(&sb, "- **%s** (%s, %d chunks) `%s`\n", d.Filename, d.Topic, d.Chunks, d.Path)
		}
		return mcp.NewToolResultText(sb.String()), nil
	}
}

func makeIngestPaperHandler(ing paperIngester, defaultRoot string) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		path := req.GetString("path", "")
		if path == "" {
			return mcp.NewToolResultError("path is required"), nil
		}
		opts := index.PaperOptions{Root: req.GetString("root", defaultRoot)}
		if args := req.GetArguments(); args != nil {
			if _, ok := args["topics"]; ok {
				opts.Topics = config.ParseTopics(req.GetString("topics", ""))
				if opts.Topics == nil {
					opts.Topics = []string{}
				}
			}
		}

		res, err := ing.IngestPaper(ctx, path, opts)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("ingest failed: %v", err)), nil
		}

		var sb strings.Builder
		fmt.Fprintf(&sb, "Indexed **%s**\n\n", res.Filename)
		fmt.Fprintf(&sb, "**Topic:** %s  \n**Score:** %.3f  \n**Chunks:** %d  \n**Path:** `%s`\n",
			res.Topic, res.Score, res.Chunks, res.Path)
		if res.RelocationErr != nil {
			fmt.Fprintf(&sb, "\nWarning: file was not moved: %v\n", res.RelocationErr)
		}
		return mcp.NewToolResultText(sb.String()), nil
	}
}

// --- Formatting helpers ---

func formatPaperResults(query string, results []retrieval.Result) string {
	if len(results) == 0 {
		return fmt.Sprintf("No results found for query: %q", query)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "## Paper results for %q (%d)\n\n", query, len(results))

	for i, r := range results {
		tag := ""
		if r.IsSummary {
			tag = " [SUMMARY MATCH]"
		}
		fmt.Fprintf(&sb, "### Result %d: `%s`%s\n\n", i+1, r.Filename, tag)
		fmt.Fprintf(&sb, "**Page:** %d  \n**Topic:** %s  \n**Score:** %.3f  \n**Path:** `%s`\n\n",
			r.PageNumber, r.Topic, r.Score, r.Path)
		fmt.Fprintf(&sb, "> %s\n\n", strings.ReplaceAll(r.Text, "\n", "\n> "))
	}

	return sb.String()
}

func formatImageResults(query string, results []retrieval.Result) string {
	if len(results) == 0 {
		return fmt.Sprintf("No images found for query: %q", query)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "## Image results for %q (%d)\n\n", query, len(results))
	for i, r := range results {
		fmt.Fprintf(&sb, "%d. **%s** (score %.3f) `%s`\n", i+1, r.Filename, r.Score, r.Path)
	}
	return sb.String()
}
