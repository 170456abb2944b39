package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"docsift/internal/embedder"
)

var askImageCmd = &cobra.Command{
	Use:   "ask-image <path> [question]",
	Short: "Ask a vision model about an image",
	Long: "Ask a vision model about an image. Without a question, starts an interactive\n" +
		"session about the image (type /help for commands, /exit to quit).",
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		path := args[0]
		if _, err := os.Stat(path); err != nil {
			return err
		}
		if !embedder.IsImageFile(path) {
			return fmt.Errorf("%s does not look like an image", path)
		}

		rt, err := openRuntime(ctx)
		if err != nil {
			return err
		}
		defer rt.Close()

		if len(args) == 2 {
			answer, err := rt.Vision.Ask(ctx, path, args[1])
			if err != nil {
				return err
			}
			fmt.Println(answer)
			return nil
		}

		scanner := bufio.NewScanner(os.Stdin)
		fmt.Printf("docsift ask-image %s (model %s, /help for commands)\n\n", path, rt.Vision.Model())

		for {
			fmt.Print("> ")
			if !scanner.Scan() {
				break
			}
			question := strings.TrimSpace(scanner.Text())
			if question == "" {
				continue
			}

			switch question {
			case "/exit", "/quit":
				fmt.Println("Goodbye.")
				return nil
			case "/help":
				fmt.Println("Commands:")
				fmt.Println("  /exit   - quit")
				fmt.Println("  /help   - show this help")
				continue
			}

			fmt.Println("[Looking...]")
			answer, err := rt.Vision.Ask(ctx, path, question)
			if err != nil {
				fmt.Fprintf(os.Stderr, "vision error: %v\n", err)
				continue
			}

			fmt.Println()
			fmt.Println(answer)
			fmt.Println()
		}

		return scanner.Err()
	},
}

func init() {
	rootCmd.AddCommand(askImageCmd)
}
