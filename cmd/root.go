package cmd

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	verbose bool
	quiet   bool
)

var rootCmd = &cobra.Command{
	Use:   "dental-ai",
	Short: "Convert dental consultation transcripts into SOAP records",
	Long: `dental-ai ingests consultation transcripts (PLAUD NOTE / Notta TXT and CSV,
SRT subtitles, Markdown summaries) and produces structured SOAP clinical notes
plus a consultation quality assessment, combining Gemini AI analysis with a
deterministic rule-based fallback.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// .env is optional; GEMINI_API_KEY may come from the real environment.
		_ = godotenv.Load()
		setupLogging()
	},
}

func setupLogging() {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	if quiet {
		level = slog.LevelError
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	slog.SetDefault(slog.New(handler))
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose logging")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress non-error output")
}
