// Package main provides the actas CLI for numbering speeding acts and
// producing their notification documents.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/seguridadvial/internal/app"
	"github.com/joseph-ayodele/seguridadvial/internal/common"
)

var (
	version = "dev"

	// Global flags
	dbURL    string
	logLevel string
	pdfDir   string

	cfg    *common.Config
	logger *slog.Logger
	wired  *app.App
)

// openApp wires the services on first use; commands that never touch the
// database do not call it.
func openApp(ctx context.Context) (*app.App, error) {
	if wired != nil {
		return wired, nil
	}
	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	wired = a
	return a, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "actas",
		Short: "Number speeding acts and produce their notification documents",
		Long: `actas manages the register of speeding acts: it numbers new acts per
series, renders their notification documents and mails them.

Configuration comes from the environment (DB_URL, PDF_DIR, SMTP_HOST, ...);
flags override the most common settings.`,
		Version:      version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg = common.LoadConfig()
			if cmd.Flags().Changed("db") {
				cfg.Database.DSN = dbURL
			}
			if cmd.Flags().Changed("pdf-dir") {
				cfg.Storage.PDFDir = pdfDir
			}
			if cmd.Flags().Changed("log-level") {
				cfg.LogLevel = logLevel
			}
			logger = app.NewLogger(os.Stderr, cfg.LogLevel, false)
			slog.SetDefault(logger)
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if wired != nil {
				wired.Close()
				wired = nil
			}
		},
	}

	rootCmd.PersistentFlags().StringVar(&dbURL, "db", "", "database URL (postgres://… or sqlite://path); overrides DB_URL")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&pdfDir, "pdf-dir", "", "directory for generated documents; overrides PDF_DIR")

	rootCmd.AddCommand(newExtractCmd())
	rootCmd.AddCommand(newScanCmd())
	rootCmd.AddCommand(newSchemaCmd())
	rootCmd.AddCommand(newCreateCmd())
	rootCmd.AddCommand(newGetCmd())
	rootCmd.AddCommand(newListCmd())
	rootCmd.AddCommand(newPatchCmd())
	rootCmd.AddCommand(newStatsCmd())
	rootCmd.AddCommand(newOwnerCmd())
	rootCmd.AddCommand(newGenerateCmd())
	rootCmd.AddCommand(newPreviewCmd())
	rootCmd.AddCommand(newSendCmd())
	rootCmd.AddCommand(newRegenerateCmd())
	rootCmd.AddCommand(newExportCmd())
	return rootCmd
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := newRootCmd().ExecuteContext(ctx)
	if wired != nil {
		wired.Close()
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
