package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/daideguchi/dental-ai-counseling-system/internal/api"
	"github.com/daideguchi/dental-ai-counseling-system/internal/config"
	"github.com/daideguchi/dental-ai-counseling-system/internal/pipeline"
	"github.com/daideguchi/dental-ai-counseling-system/internal/server"
	"github.com/daideguchi/dental-ai-counseling-system/internal/store"
)

var (
	serveConfigPath string
	serveNoAI       bool
	serveAddr       string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API for transcript analysis",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(serveConfigPath)
	if err != nil {
		return err
	}
	if serveAddr != "" {
		cfg.Server.Address = serveAddr
	}

	var ai pipeline.AIClient
	if !serveNoAI {
		ai = api.NewClient(cfg.AI)
	}

	records, err := store.Open(cfg.Store.Path)
	if err != nil {
		return err
	}
	defer records.Close()

	sessions := store.NewJSONLWriter(cfg.Store.JSONLPath)
	srv := server.New(pipeline.New(cfg, ai), records, sessions, cfg)
	return srv.Run(ctx)
}

func init() {
	serveCmd.Flags().StringVarP(&serveConfigPath, "config", "c", "", "YAML config file overriding defaults")
	serveCmd.Flags().BoolVar(&serveNoAI, "no-ai", false, "skip Gemini calls, rule-based analysis only")
	serveCmd.Flags().StringVarP(&serveAddr, "addr", "a", "", "listen address override")
	rootCmd.AddCommand(serveCmd)
}
