package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/joseph-ayodele/seguridadvial/constants"
	"github.com/joseph-ayodele/seguridadvial/internal/common"
	"github.com/joseph-ayodele/seguridadvial/internal/entity"
)

// DefaultListLimit caps List when the filter sets no limit.
const DefaultListLimit = 200

// NewInfraction is a validated infraction ready to be numbered and stored.
type NewInfraction struct {
	Series          string
	Domain          string
	Type            string
	MeasuredSpeed   float64
	AuthorizedSpeed float64
	Location        string
	Artery          string
	Lat             *float64
	Lng             *float64
	PhotoRef        string
	CameraSerial    string
	Vehicle         entity.Vehicle
	Driver          entity.Person
	Owner           entity.Person
	Notes           string
	Status          constants.InfractionStatus
	Notified        bool
	LoggedAt        time.Time
	IssuedAt        time.Time
	NotifiedAt      *time.Time
}

type InfractionRepository interface {
	CreateNumbered(ctx context.Context, in NewInfraction) (*entity.Infraction, error)
	Get(ctx context.Context, id int64) (*entity.Infraction, error)
	List(ctx context.Context, filter entity.InfractionFilter) ([]*entity.Infraction, error)
	ListIDs(ctx context.Context, filter entity.InfractionFilter) ([]int64, error)
	Patch(ctx context.Context, id int64, patch entity.InfractionPatch) (*entity.Infraction, error)
}

type infractionRepository struct {
	db        *DB
	allocator CorrelativeAllocator
	logger    *slog.Logger
}

func NewInfractionRepository(db *DB, allocator CorrelativeAllocator, logger *slog.Logger) InfractionRepository {
	if logger == nil {
		logger = slog.Default()
	}
	if allocator == nil {
		allocator = NewCorrelativeAllocator(db)
	}
	return &infractionRepository{db: db, allocator: allocator, logger: logger}
}

func prefixed(prefix string) []string {
	cols := make([]string, len(personColumns))
	for i, c := range personColumns {
		cols[i] = prefix + "_" + c
	}
	return cols
}

func personValues(p entity.Person) []any {
	return []any{p.Name, p.DNI, p.Address, p.License, p.Class, p.PostalCode, p.Department, p.Province}
}

// CreateNumbered allocates the next number of the series and inserts the
// row in one transaction. Any failure rolls back both; the number may be
// skipped but is never reused.
func (r *infractionRepository) CreateNumbered(ctx context.Context, in NewInfraction) (*entity.Infraction, error) {
	var id, seq int64
	err := r.db.inTx(ctx, func(tx *sql.Tx) error {
		var err error
		seq, err = r.allocator.Next(ctx, tx, in.Series)
		if err != nil {
			return err
		}

		cols := []string{
			"serie", "nro_correlativo", "dominio", "tipo_infraccion",
			"velocidad_medida", "velocidad_autorizada", "ubicacion_texto", "arteria",
			"lat", "lng", "foto_url", "cam_serie",
			"vehiculo_tipo", "vehiculo_marca", "vehiculo_modelo",
		}
		cols = append(cols, prefixed("conductor")...)
		cols = append(cols, prefixed("titular")...)
		cols = append(cols, "observaciones", "estado", "notificado", "fecha_registro", "fecha_labrado", "fecha_notificacion")

		vals := []any{
			in.Series, seq, in.Domain, in.Type,
			in.MeasuredSpeed, in.AuthorizedSpeed, in.Location, in.Artery,
			nullableFloat(in.Lat), nullableFloat(in.Lng), in.PhotoRef, in.CameraSerial,
			in.Vehicle.Type, in.Vehicle.Make, in.Vehicle.Model,
		}
		vals = append(vals, personValues(in.Driver)...)
		vals = append(vals, personValues(in.Owner)...)
		vals = append(vals, in.Notes, string(in.Status), in.Notified, in.LoggedAt.UTC(), in.IssuedAt.UTC(), nullableTime(in.NotifiedAt))

		ib := r.db.builder().Insert(tableInfractions).Columns(cols...).Values(vals...)
		id, err = r.db.insertID(ctx, tx, ib)
		if err != nil {
			return fmt.Errorf("insert infraction: %w", err)
		}
		return nil
	})
	if err != nil {
		r.logger.Error("infraction create failed", "series", in.Series, "domain", in.Domain, "error", err)
		return nil, err
	}
	r.logger.Info("infraction created", "infraction_id", id, "act_number", constants.ActNumber(in.Series, seq))
	return r.Get(ctx, id)
}

// selectInfractions builds the joined read used by Get and List. The
// registered-owner lookup fills whatever the infraction row leaves blank.
func (r *infractionRepository) selectInfractions() (*entsql.Selector, *entsql.SelectTable) {
	b := r.db.builder()
	i := b.Table(tableInfractions).As("i")
	t := b.Table(tableOwners).As("t")

	cols := []string{
		i.C("id"), i.C("serie"), i.C("nro_correlativo"), i.C("dominio"), i.C("tipo_infraccion"),
		i.C("velocidad_medida"), i.C("velocidad_autorizada"), i.C("ubicacion_texto"), i.C("arteria"),
		i.C("lat"), i.C("lng"), i.C("foto_url"), i.C("cam_serie"),
		i.C("vehiculo_tipo"), i.C("vehiculo_marca"), i.C("vehiculo_modelo"),
	}
	for _, c := range prefixed("conductor") {
		cols = append(cols, i.C(c))
	}
	for _, c := range prefixed("titular") {
		cols = append(cols, i.C(c))
	}
	cols = append(cols,
		i.C("observaciones"), i.C("estado"), i.C("notificado"),
		i.C("fecha_registro"), i.C("fecha_labrado"), i.C("fecha_notificacion"),
	)
	for _, c := range prefixed("titular") {
		cols = append(cols, t.C(c))
	}
	cols = append(cols, t.C("vehiculo_tipo"), t.C("vehiculo_marca"), t.C("vehiculo_modelo"))

	sel := b.Select(cols...).
		From(i).
		LeftJoin(t).
		On(i.C("dominio"), t.C("dominio"))
	return sel, i
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInfraction(row rowScanner) (*entity.Infraction, error) {
	var (
		inf                          entity.Infraction
		status                       string
		lat, lng                     sql.NullFloat64
		loggedAt, issuedAt, notified nullTime
		lookup                       [8]sql.NullString
		lookupVehicle                [3]sql.NullString
	)
	d, o := &inf.Driver, &inf.Owner
	dest := []any{
		&inf.ID, &inf.Series, &inf.Sequence, &inf.Domain, &inf.Type,
		&inf.MeasuredSpeed, &inf.AuthorizedSpeed, &inf.Location, &inf.Artery,
		&lat, &lng, &inf.PhotoRef, &inf.CameraSerial,
		&inf.Vehicle.Type, &inf.Vehicle.Make, &inf.Vehicle.Model,
		&d.Name, &d.DNI, &d.Address, &d.License, &d.Class, &d.PostalCode, &d.Department, &d.Province,
		&o.Name, &o.DNI, &o.Address, &o.License, &o.Class, &o.PostalCode, &o.Department, &o.Province,
		&inf.Notes, &status, &inf.Notified,
		&loggedAt, &issuedAt, &notified,
	}
	for i := range lookup {
		dest = append(dest, &lookup[i])
	}
	for i := range lookupVehicle {
		dest = append(dest, &lookupVehicle[i])
	}
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	inf.Status = constants.InfractionStatus(status)
	if lat.Valid {
		inf.Lat = &lat.Float64
	}
	if lng.Valid {
		inf.Lng = &lng.Float64
	}
	inf.LoggedAt = loggedAt.Time
	inf.IssuedAt = issuedAt.Time
	inf.NotifiedAt = notified.ptr()

	fill := func(dst *string, src sql.NullString) {
		if strings.TrimSpace(*dst) == "" && src.Valid {
			*dst = src.String
		}
	}
	for i, dst := range []*string{&o.Name, &o.DNI, &o.Address, &o.License, &o.Class, &o.PostalCode, &o.Department, &o.Province} {
		fill(dst, lookup[i])
	}
	fill(&inf.Vehicle.Type, lookupVehicle[0])
	fill(&inf.Vehicle.Make, lookupVehicle[1])
	fill(&inf.Vehicle.Model, lookupVehicle[2])
	return &inf, nil
}

func (r *infractionRepository) Get(ctx context.Context, id int64) (*entity.Infraction, error) {
	sel, i := r.selectInfractions()
	query, args := sel.Where(entsql.EQ(i.C("id"), id)).Query()
	inf, err := scanInfraction(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("infraction %d: %w", id, common.ErrNotFound)
	}
	if err != nil {
		r.logger.Error("failed to get infraction", "infraction_id", id, "error", err)
		return nil, fmt.Errorf("%w: get infraction %d: %v", common.ErrDatabase, id, err)
	}
	return inf, nil
}

// ParseActNumber splits "A-0000042" into series and sequence.
func ParseActNumber(act string) (string, int64, bool) {
	idx := strings.LastIndex(act, "-")
	if idx <= 0 || idx == len(act)-1 {
		return "", 0, false
	}
	seq, err := strconv.ParseInt(act[idx+1:], 10, 64)
	if err != nil || seq <= 0 {
		return "", 0, false
	}
	return strings.ToUpper(strings.TrimSpace(act[:idx])), seq, true
}

// filterPredicates returns the WHERE conditions of a filter. ok is false
// when the filter can match nothing (malformed act number).
func filterPredicates(filter entity.InfractionFilter, col func(string) string) ([]*entsql.Predicate, bool) {
	var ps []*entsql.Predicate
	if d := strings.ToUpper(strings.TrimSpace(filter.Domain)); d != "" {
		ps = append(ps, entsql.EQ(col("dominio"), d))
	}
	if filter.ActNumber != "" {
		series, seq, ok := ParseActNumber(filter.ActNumber)
		if !ok {
			return nil, false
		}
		ps = append(ps, entsql.EQ(col("serie"), series), entsql.EQ(col("nro_correlativo"), seq))
	}
	if filter.Series != "" {
		ps = append(ps, entsql.EQ(col("serie"), strings.ToUpper(filter.Series)))
	}
	if filter.Status != "" {
		ps = append(ps, entsql.EQ(col("estado"), string(filter.Status)))
	}
	return ps, true
}

func (r *infractionRepository) List(ctx context.Context, filter entity.InfractionFilter) ([]*entity.Infraction, error) {
	sel, i := r.selectInfractions()
	ps, ok := filterPredicates(filter, i.C)
	if !ok {
		return []*entity.Infraction{}, nil
	}
	if len(ps) > 0 {
		sel.Where(entsql.And(ps...))
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	query, args := sel.OrderBy(entsql.Desc(i.C("fecha_labrado")), entsql.Desc(i.C("id"))).Limit(limit).Query()

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("failed to list infractions", "error", err)
		return nil, fmt.Errorf("%w: list infractions: %v", common.ErrDatabase, err)
	}
	defer rows.Close()

	out := make([]*entity.Infraction, 0)
	for rows.Next() {
		inf, err := scanInfraction(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scan infraction: %v", common.ErrDatabase, err)
		}
		out = append(out, inf)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list infractions: %v", common.ErrDatabase, err)
	}
	return out, nil
}

// ListIDs returns matching ids, oldest first. A zero Limit means no limit.
func (r *infractionRepository) ListIDs(ctx context.Context, filter entity.InfractionFilter) ([]int64, error) {
	b := r.db.builder()
	t := b.Table(tableInfractions)
	ps, ok := filterPredicates(filter, t.C)
	if !ok {
		return []int64{}, nil
	}
	sel := b.Select(t.C("id")).From(t).OrderBy(t.C("id"))
	if len(ps) > 0 {
		sel.Where(entsql.And(ps...))
	}
	if filter.Limit > 0 {
		sel.Limit(filter.Limit)
	}
	query, args := sel.Query()
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: list infraction ids: %v", common.ErrDatabase, err)
	}
	defer rows.Close()

	ids := make([]int64, 0)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("%w: scan id: %v", common.ErrDatabase, err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Patch applies the non-nil fields of patch. An empty patch only checks
// that the infraction exists.
func (r *infractionRepository) Patch(ctx context.Context, id int64, patch entity.InfractionPatch) (*entity.Infraction, error) {
	if patch.IsEmpty() {
		return r.Get(ctx, id)
	}
	ub := r.db.builder().Update(tableInfractions).Where(entsql.EQ("id", id))
	if patch.Location != nil {
		ub.Set("ubicacion_texto", *patch.Location)
	}
	if patch.MeasuredSpeed != nil {
		ub.Set("velocidad_medida", *patch.MeasuredSpeed)
	}
	if patch.AuthorizedSpeed != nil {
		ub.Set("velocidad_autorizada", *patch.AuthorizedSpeed)
	}
	if patch.Status != nil {
		ub.Set("estado", string(*patch.Status))
	}
	if patch.CameraSerial != nil {
		ub.Set("cam_serie", *patch.CameraSerial)
	}
	if patch.VehicleType != nil {
		ub.Set("vehiculo_tipo", *patch.VehicleType)
	}
	if patch.VehicleMake != nil {
		ub.Set("vehiculo_marca", *patch.VehicleMake)
	}
	if patch.VehicleModel != nil {
		ub.Set("vehiculo_modelo", *patch.VehicleModel)
	}

	res, err := exec(ctx, r.db, ub)
	if err != nil {
		r.logger.Error("failed to patch infraction", "infraction_id", id, "error", err)
		return nil, fmt.Errorf("patch infraction %d: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, fmt.Errorf("infraction %d: %w", id, common.ErrNotFound)
	}
	r.logger.Info("infraction patched", "infraction_id", id)
	return r.Get(ctx, id)
}
