package main

import (
	"fmt"
	"os"
	"strconv"
	"sync"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/seguridadvial/internal/async"
	"github.com/joseph-ayodele/seguridadvial/internal/common"
	"github.com/joseph-ayodele/seguridadvial/internal/entity"
)

func newGenerateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "generate <id|act-number>",
		Short: "Render and store the notification document of an act",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			id, err := resolveID(cmd.Context(), a.Infractions, args[0])
			if err != nil {
				return err
			}
			res, err := a.Notify.Generate(cmd.Context(), id)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}
}

func newPreviewCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "preview <id|act-number>",
		Short: "Render a document without storing it or touching its notification",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			id, err := resolveID(cmd.Context(), a.Infractions, args[0])
			if err != nil {
				return err
			}
			res, err := a.Notify.GenerateStream(cmd.Context(), id)
			if err != nil {
				return err
			}
			if out == "" {
				out = res.Filename
			}
			if err := os.WriteFile(out, res.Bytes, 0o644); err != nil {
				return fmt.Errorf("write preview: %w", err)
			}
			for _, w := range res.Warnings {
				fmt.Fprintln(cmd.ErrOrStderr(), "warning:", w)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%s, %d bytes)\n", out, res.ContentType, len(res.Bytes))
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default {PREFIX}-{act}.{ext} in the current directory)")
	return cmd
}

func newSendCmd() *cobra.Command {
	var to string
	cmd := &cobra.Command{
		Use:   "send <notification-id>",
		Short: "Mail a generated notification and mark the act as notified",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("%w: notification id must be numeric", common.ErrInvalidInput)
			}
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			n, err := a.Notify.Send(cmd.Context(), id, to)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), n)
		},
	}
	cmd.Flags().StringVar(&to, "to", "", "recipient email address")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func newRegenerateCmd() *cobra.Command {
	var (
		filter  entity.InfractionFilter
		workers int
	)
	cmd := &cobra.Command{
		Use:   "regenerate",
		Short: "Re-render the documents of many acts in the background queue",
		Long: `Re-render and store the documents of every act matching the filter.
Sent notifications stay sent; only the stored file is refreshed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			ids, err := a.Infractions.ListIDs(cmd.Context(), filter)
			if err != nil {
				return err
			}

			var (
				mu       sync.Mutex
				failures []string
			)
			q := a.RenderQueue(workers, async.WithResultHandler(func(r async.JobResult) {
				if r.Err == nil {
					return
				}
				mu.Lock()
				failures = append(failures, fmt.Sprintf("infraction %d: %v", r.Job.InfractionID, r.Err))
				mu.Unlock()
			}))
			for _, id := range ids {
				if err := q.Enqueue(cmd.Context(), async.Job{InfractionID: id}); err != nil {
					q.Shutdown(cmd.Context())
					return err
				}
			}
			q.Shutdown(cmd.Context())

			processed, failed := q.Counts()
			return printJSON(cmd.OutOrStdout(), map[string]any{
				"queued":    len(ids),
				"processed": processed,
				"failed":    failed,
				"failures":  failures,
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&filter.Domain, "domain", "", "only acts of this plate")
	f.StringVar(&filter.Series, "series", "", "only acts of this series")
	f.IntVar(&filter.Limit, "limit", 0, "maximum acts (0 = all)")
	f.IntVar(&workers, "workers", 4, "concurrent renders")
	return cmd
}

func newExportCmd() *cobra.Command {
	var (
		filter entity.InfractionFilter
		out    string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the register as an XLSX workbook",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			b, err := a.Export.ExportInfractionsXLSX(cmd.Context(), filter)
			if err != nil {
				return err
			}
			if err := os.WriteFile(out, b, 0o644); err != nil {
				return fmt.Errorf("write export: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d bytes)\n", out, len(b))
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVarP(&out, "out", "o", "infracciones.xlsx", "output file")
	f.StringVar(&filter.Domain, "domain", "", "only acts of this plate")
	f.StringVar(&filter.Series, "series", "", "only acts of this series")
	f.IntVar(&filter.Limit, "limit", 10000, "maximum rows")
	return cmd
}
