package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/joseph-ayodele/seguridadvial/internal/common"
	"github.com/joseph-ayodele/seguridadvial/internal/entity"
)

// OwnerRepository reads and seeds the registered-owner lookup.
type OwnerRepository interface {
	ByDomain(ctx context.Context, domain string) (*entity.Owner, error)
	Upsert(ctx context.Context, owner entity.Owner) error
}

type ownerRepository struct {
	db     *DB
	logger *slog.Logger
}

func NewOwnerRepository(db *DB, logger *slog.Logger) OwnerRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &ownerRepository{db: db, logger: logger}
}

func (r *ownerRepository) ByDomain(ctx context.Context, domain string) (*entity.Owner, error) {
	domain = strings.ToUpper(strings.TrimSpace(domain))
	b := r.db.builder()
	cols := append([]string{"dominio"}, prefixed("titular")...)
	cols = append(cols, "vehiculo_tipo", "vehiculo_marca", "vehiculo_modelo")
	query, args := b.Select(cols...).
		From(b.Table(tableOwners)).
		Where(entsql.EQ("dominio", domain)).
		Query()

	var o entity.Owner
	p := &o.Person
	err := r.db.QueryRowContext(ctx, query, args...).Scan(
		&o.Domain,
		&p.Name, &p.DNI, &p.Address, &p.License, &p.Class, &p.PostalCode, &p.Department, &p.Province,
		&o.Vehicle.Type, &o.Vehicle.Make, &o.Vehicle.Model,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("owner %s: %w", domain, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get owner %s: %v", common.ErrDatabase, domain, err)
	}
	return &o, nil
}

func (r *ownerRepository) Upsert(ctx context.Context, owner entity.Owner) error {
	domain := strings.ToUpper(strings.TrimSpace(owner.Domain))
	if domain == "" {
		return fmt.Errorf("%w: owner domain is required", common.ErrInvalidInput)
	}
	cols := append([]string{"dominio"}, prefixed("titular")...)
	cols = append(cols, "vehiculo_tipo", "vehiculo_marca", "vehiculo_modelo")
	vals := append([]any{domain}, personValues(owner.Person)...)
	vals = append(vals, owner.Vehicle.Type, owner.Vehicle.Make, owner.Vehicle.Model)

	ib := r.db.builder().Insert(tableOwners).
		Columns(cols...).
		Values(vals...).
		OnConflict(entsql.ConflictColumns("dominio"), entsql.ResolveWithNewValues())
	if _, err := exec(ctx, r.db, ib); err != nil {
		r.logger.Error("owner upsert failed", "domain", domain, "error", err)
		return fmt.Errorf("upsert owner %s: %w", domain, err)
	}
	return nil
}
