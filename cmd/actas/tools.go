package main

import (
	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/seguridadvial/internal/extract"
	"github.com/joseph-ayodele/seguridadvial/internal/infractions"
	"github.com/joseph-ayodele/seguridadvial/internal/ingest"
)

func newExtractCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "extract <camera-export.txt>",
		Short: "Print the fields found in a camera text export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fields, err := extract.ExtractFile(args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), fields)
		},
	}
}

func newScanCmd() *cobra.Command {
	var (
		skipHidden bool
		write      bool
		outbox     string
	)
	cmd := &cobra.Command{
		Use:   "scan <dir>",
		Short: "Extract every camera export in a directory and pair it with its photo",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ing := ingest.NewFSIngestor(logger)
			results, stats, err := ing.ScanDirectory(cmd.Context(), args[0], skipHidden)
			if err != nil {
				return err
			}
			if write {
				if outbox == "" {
					outbox = cfg.Ingest.OutboxDir
				}
				u := ingest.NewUsecase(ing, outbox, logger)
				for _, c := range results {
					if c.Err != "" {
						continue
					}
					if _, err := u.WritePrefill(c); err != nil {
						return err
					}
				}
			}
			return printJSON(cmd.OutOrStdout(), map[string]any{
				"stats":   stats,
				"results": results,
			})
		},
	}
	f := cmd.Flags()
	f.BoolVar(&skipHidden, "skip-hidden", true, "skip hidden files and directories")
	f.BoolVar(&write, "write", false, "write <stem>.prefill.json files to the outbox")
	f.StringVar(&outbox, "outbox", "", "prefill directory (default CAMERA_OUTBOX_DIR)")
	return cmd
}

func newSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON schema accepted by create --from",
		RunE: func(cmd *cobra.Command, args []string) error {
			return printJSON(cmd.OutOrStdout(), infractions.CreateRequestSchema())
		},
	}
}
