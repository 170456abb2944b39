package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"docsift/internal/app"
	"docsift/internal/config"
	"docsift/internal/logger"
)

var (
	flagConfig  string
	flagDB      string
	flagOllama  string
	flagModel   string
	flagCLIP    string
	flagVerbose bool
)

var rootCmd = &cobra.Command{
	Use:   "docsift",
	Short: "Local research paper and image library powered by embeddings",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		appCfg = cfg
		level := cfg.LogLevel
		if flagVerbose {
			level = "debug"
		}
		logger.Init(level, cfg.LogJSON)
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTUI(cmd.Context(), "", nil)
	},
	SilenceUsage: true,
}

// appCfg is resolved once in PersistentPreRunE.
var appCfg *config.AppConfig

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file (default ./docsift.yaml or ~/.config/docsift/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "database path (default ~/.docsift/docsift.db)")
	rootCmd.PersistentFlags().StringVar(&flagOllama, "ollama", "", "ollama base URL")
	rootCmd.PersistentFlags().StringVar(&flagModel, "model", "", "text embedding model")
	rootCmd.PersistentFlags().StringVar(&flagCLIP, "clip", "", "CLIP server base URL")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "debug logging")
}

// loadConfig reads the config file and applies flag overrides on top.
func loadConfig() (*config.AppConfig, error) {
	var (
		cfg *config.AppConfig
		err error
	)
	if flagConfig != "" {
		cfg, err = config.Load(flagConfig)
	} else {
		cfg, _, err = config.LoadDefault()
	}
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if flagDB != "" {
		cfg.DBPath = flagDB
	}
	if flagOllama != "" {
		cfg.Ollama.BaseURL = flagOllama
	}
	if flagModel != "" {
		cfg.Ollama.TextModel = flagModel
	}
	if flagCLIP != "" {
		cfg.CLIP.BaseURL = flagCLIP
	}
	return cfg, nil
}

func openRuntime(ctx context.Context) (*app.Runtime, error) {
	if appCfg == nil {
		return nil, fmt.Errorf("config not loaded")
	}
	return app.Open(ctx, appCfg)
}

// topicsFlag distinguishes an unset --topics (configured candidates) from an
// explicitly empty one (classification disabled).
func topicsFlag(cmd *cobra.Command, value string) []string {
	if !cmd.Flags().Changed("topics") {
		return nil
	}
	topics := config.ParseTopics(value)
	if topics == nil {
		return []string{}
	}
	return topics
}
