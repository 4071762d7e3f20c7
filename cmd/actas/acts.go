package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/seguridadvial/constants"
	"github.com/joseph-ayodele/seguridadvial/internal/common"
	"github.com/joseph-ayodele/seguridadvial/internal/entity"
	"github.com/joseph-ayodele/seguridadvial/internal/extract"
	"github.com/joseph-ayodele/seguridadvial/internal/repository"
)

// resolveID accepts either a numeric id or an act number such as A-0000042.
func resolveID(ctx context.Context, repo repository.InfractionRepository, arg string) (int64, error) {
	if id, err := strconv.ParseInt(arg, 10, 64); err == nil {
		return id, nil
	}
	if _, _, ok := repository.ParseActNumber(arg); !ok {
		return 0, fmt.Errorf("%w: %q is neither an id nor an act number", common.ErrInvalidInput, arg)
	}
	list, err := repo.List(ctx, entity.InfractionFilter{ActNumber: arg, Limit: 1})
	if err != nil {
		return 0, err
	}
	if len(list) == 0 {
		return 0, fmt.Errorf("act %s: %w", arg, common.ErrNotFound)
	}
	return list[0].ID, nil
}

func newCreateCmd() *cobra.Command {
	var (
		fromFile string
		txtFile  string
		issued   string
		req      entity.CreateInfractionRequest
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an act under the next number of its series",
		Long: `Create an act and try to generate its notification document.

The act can be described with flags, with a JSON request (--from, validated
against the schema printed by "actas schema"), or prefilled from a camera
text export (--txt); explicit flags win over the export.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			if fromFile != "" {
				raw, err := os.ReadFile(fromFile)
				if err != nil {
					return fmt.Errorf("read request: %w", err)
				}
				res, err := a.Acts.CreateFromJSON(cmd.Context(), raw)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), res)
			}

			if issued != "" {
				t, err := time.Parse(time.RFC3339, issued)
				if err != nil {
					return fmt.Errorf("%w: --issued must be RFC3339: %v", common.ErrInvalidInput, err)
				}
				req.IssuedAt = t
			}
			if txtFile != "" {
				fields, err := extract.ExtractFile(txtFile)
				if err != nil {
					return fmt.Errorf("read camera export: %w", err)
				}
				fields.Apply(&req)
			}
			res, err := a.Acts.Create(cmd.Context(), req)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}

	f := cmd.Flags()
	f.StringVar(&fromFile, "from", "", "JSON request file")
	f.StringVar(&txtFile, "txt", "", "camera text export used to prefill missing fields")
	f.StringVar(&req.Series, "series", constants.SeriesCamera, "numbering series (A camera, P in person)")
	f.StringVar(&req.Domain, "domain", "", "vehicle plate")
	f.StringVar(&req.Type, "type", "", "violation type (default "+constants.DefaultInfractionType+")")
	f.StringVar(&issued, "issued", "", "issued instant, RFC3339")
	f.Float64Var(&req.MeasuredSpeed, "measured", 0, "measured speed, km/h")
	f.Float64Var(&req.AuthorizedSpeed, "authorized", 0, "authorized speed, km/h")
	f.StringVar(&req.Location, "location", "", "location text")
	f.StringVar(&req.Artery, "artery", "", "artery")
	f.StringVar(&req.PhotoRef, "photo", "", "photo reference (relative to UPLOAD_DIR or absolute)")
	f.StringVar(&req.CameraSerial, "camera-serial", "", "camera serial number")
	f.StringVar(&req.Vehicle.Type, "vehicle-type", "", "vehicle type")
	f.StringVar(&req.Vehicle.Make, "vehicle-make", "", "vehicle make")
	f.StringVar(&req.Vehicle.Model, "vehicle-model", "", "vehicle model")
	f.StringVar(&req.Driver.Name, "driver-name", "", "driver name (in-person acts)")
	f.StringVar(&req.Driver.DNI, "driver-dni", "", "driver DNI (in-person acts)")
	f.StringVar(&req.Driver.License, "driver-license", "", "driver license (in-person acts)")
	f.StringVar(&req.Notes, "notes", "", "free-form notes")
	return cmd
}

func newGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id|act-number>",
		Short: "Show one act",
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
			inf, err := a.Acts.Get(cmd.Context(), id)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), inf)
		},
	}
}

func newListCmd() *cobra.Command {
	var (
		filter entity.InfractionFilter
		status string
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List acts, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			filter.Status = constants.InfractionStatus(strings.ToLower(strings.TrimSpace(status)))
			list, err := a.Acts.List(cmd.Context(), filter)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), list)
		},
	}
	f := cmd.Flags()
	f.StringVar(&filter.Domain, "domain", "", "filter by plate")
	f.StringVar(&filter.ActNumber, "act", "", "filter by act number")
	f.StringVar(&filter.Series, "series", "", "filter by series")
	f.StringVar(&status, "status", "", "filter by status (validada, notificada, anulada)")
	f.IntVar(&filter.Limit, "limit", repository.DefaultListLimit, "maximum rows")
	return cmd
}

func newPatchCmd() *cobra.Command {
	var (
		location, status, serial string
		vType, vMake, vModel     string
		measured, authorized     float64
	)
	cmd := &cobra.Command{
		Use:   "patch <id|act-number>",
		Short: "Update some fields of an act",
		Long:  "Update the given fields of an act. Flags that are not passed are left unchanged.",
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

			var patch entity.InfractionPatch
			f := cmd.Flags()
			if f.Changed("location") {
				patch.Location = &location
			}
			if f.Changed("measured") {
				patch.MeasuredSpeed = &measured
			}
			if f.Changed("authorized") {
				patch.AuthorizedSpeed = &authorized
			}
			if f.Changed("status") {
				st := constants.InfractionStatus(strings.ToLower(strings.TrimSpace(status)))
				patch.Status = &st
			}
			if f.Changed("camera-serial") {
				patch.CameraSerial = &serial
			}
			if f.Changed("vehicle-type") {
				patch.VehicleType = &vType
			}
			if f.Changed("vehicle-make") {
				patch.VehicleMake = &vMake
			}
			if f.Changed("vehicle-model") {
				patch.VehicleModel = &vModel
			}

			inf, err := a.Acts.Patch(cmd.Context(), id, patch)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), inf)
		},
	}
	f := cmd.Flags()
	f.StringVar(&location, "location", "", "location text")
	f.Float64Var(&measured, "measured", 0, "measured speed, km/h")
	f.Float64Var(&authorized, "authorized", 0, "authorized speed, km/h")
	f.StringVar(&status, "status", "", "status")
	f.StringVar(&serial, "camera-serial", "", "camera serial number")
	f.StringVar(&vType, "vehicle-type", "", "vehicle type")
	f.StringVar(&vMake, "vehicle-make", "", "vehicle make")
	f.StringVar(&vModel, "vehicle-model", "", "vehicle model")
	return cmd
}

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show register statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			sum, err := a.Acts.Stats(cmd.Context())
			if err != nil {
				return err
			}
			counters, err := a.Allocator.List(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), struct {
				*repository.Summary
				Counters map[string]int64 `json:"counters"`
			}{sum, counters})
		},
	}
}

func newOwnerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "owner",
		Short: "Look up or register vehicle owners",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "get <plate>",
		Short: "Show the registered owner of a plate",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			o, err := a.Owners.ByDomain(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), o)
		},
	})

	var o entity.Owner
	set := &cobra.Command{
		Use:   "set <plate>",
		Short: "Register or replace the owner of a plate",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			o.Domain = strings.ToUpper(strings.TrimSpace(args[0]))
			if err := a.Owners.Upsert(cmd.Context(), o); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), o)
		},
	}
	f := set.Flags()
	f.StringVar(&o.Person.Name, "name", "", "owner name")
	f.StringVar(&o.Person.DNI, "dni", "", "owner DNI/CUIT")
	f.StringVar(&o.Person.Address, "address", "", "owner address")
	f.StringVar(&o.Person.PostalCode, "postal-code", "", "postal code")
	f.StringVar(&o.Person.Department, "department", "", "department")
	f.StringVar(&o.Person.Province, "province", "", "province")
	f.StringVar(&o.Vehicle.Type, "vehicle-type", "", "vehicle type")
	f.StringVar(&o.Vehicle.Make, "vehicle-make", "", "vehicle make")
	f.StringVar(&o.Vehicle.Model, "vehicle-model", "", "vehicle model")
	cmd.AddCommand(set)
	return cmd
}
