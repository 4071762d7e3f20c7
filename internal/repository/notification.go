package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/joseph-ayodele/seguridadvial/constants"
	"github.com/joseph-ayodele/seguridadvial/internal/common"
	"github.com/joseph-ayodele/seguridadvial/internal/entity"
)

type NotificationRepository interface {
	UpsertGenerated(ctx context.Context, infractionID int64, path string, now time.Time) (*entity.Notification, error)
	GetForSend(ctx context.Context, id int64) (*entity.Notification, error)
	GetByInfraction(ctx context.Context, infractionID int64) (*entity.Notification, error)
	MarkSent(ctx context.Context, id int64, email string, now time.Time) (*entity.Notification, error)
	PendingInfractions(ctx context.Context, limit int) ([]int64, error)
}

type notificationRepository struct {
	db     *DB
	logger *slog.Logger
}

func NewNotificationRepository(db *DB, logger *slog.Logger) NotificationRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &notificationRepository{db: db, logger: logger}
}

// selectNotifications joins the owning infraction to expose the act number.
func (r *notificationRepository) selectNotifications() (*entsql.Selector, *entsql.SelectTable) {
	b := r.db.builder()
	n := b.Table(tableNotifications).As("n")
	i := b.Table(tableInfractions).As("i")
	sel := b.Select(
		n.C("id"), n.C("infraccion_id"), n.C("pdf_path"), n.C("estado"),
		n.C("email_destino"), n.C("creado_en"), n.C("enviado_en"),
		i.C("serie"), i.C("nro_correlativo"),
	).
		From(n).
		Join(i).
		On(n.C("infraccion_id"), i.C("id"))
	return sel, n
}

func scanNotification(row rowScanner) (*entity.Notification, error) {
	var (
		n               entity.Notification
		state           string
		email           sql.NullString
		createdAt, sent nullTime
		series          string
		seq             int64
	)
	if err := row.Scan(&n.ID, &n.InfractionID, &n.DocumentPath, &state, &email, &createdAt, &sent, &series, &seq); err != nil {
		return nil, err
	}
	n.State = constants.NotificationState(state)
	if email.Valid {
		n.RecipientEmail = &email.String
	}
	n.CreatedAt = createdAt.Time
	n.SentAt = sent.ptr()
	n.ActNumber = constants.ActNumber(series, seq)
	return &n, nil
}

func (r *notificationRepository) getWhere(ctx context.Context, q querier, col string, v int64) (*entity.Notification, error) {
	sel, n := r.selectNotifications()
	query, args := sel.Where(entsql.EQ(n.C(col), v)).Query()
	return scanNotification(q.QueryRowContext(ctx, query, args...))
}

// UpsertGenerated records a freshly rendered document. The row is created
// as generado when absent; an existing row gets the new path, and its state
// returns to generado unless it was already sent.
func (r *notificationRepository) UpsertGenerated(ctx context.Context, infractionID int64, path string, now time.Time) (*entity.Notification, error) {
	var out *entity.Notification
	err := r.db.inTx(ctx, func(tx *sql.Tx) error {
		b := r.db.builder()
		insert := b.Insert(tableNotifications).
			Columns("infraccion_id", "pdf_path", "estado", "creado_en").
			Values(infractionID, path, string(constants.NotificationGenerated), now.UTC()).
			OnConflict(entsql.ConflictColumns("infraccion_id"), entsql.DoNothing())
		if _, err := exec(ctx, tx, insert); err != nil {
			return fmt.Errorf("insert notification: %w", err)
		}

		refresh := b.Update(tableNotifications).
			Set("pdf_path", path).
			Where(entsql.EQ("infraccion_id", infractionID))
		if _, err := exec(ctx, tx, refresh); err != nil {
			return fmt.Errorf("refresh notification path: %w", err)
		}

		regen := b.Update(tableNotifications).
			Set("estado", string(constants.NotificationGenerated)).
			Where(entsql.And(
				entsql.EQ("infraccion_id", infractionID),
				entsql.NEQ("estado", string(constants.NotificationSent)),
			))
		if _, err := exec(ctx, tx, regen); err != nil {
			return fmt.Errorf("reset notification state: %w", err)
		}

		n, err := r.getWhere(ctx, tx, "infraccion_id", infractionID)
		if err != nil {
			return fmt.Errorf("%w: read notification: %v", common.ErrDatabase, err)
		}
		out = n
		return nil
	})
	if err != nil {
		r.logger.Error("notification upsert failed", "infraction_id", infractionID, "error", err)
		return nil, err
	}
	return out, nil
}

func (r *notificationRepository) GetForSend(ctx context.Context, id int64) (*entity.Notification, error) {
	n, err := r.getWhere(ctx, r.db, "id", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("notification %d: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get notification %d: %v", common.ErrDatabase, id, err)
	}
	return n, nil
}

func (r *notificationRepository) GetByInfraction(ctx context.Context, infractionID int64) (*entity.Notification, error) {
	n, err := r.getWhere(ctx, r.db, "infraccion_id", infractionID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("notification for infraction %d: %w", infractionID, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get notification for infraction %d: %v", common.ErrDatabase, infractionID, err)
	}
	return n, nil
}

// MarkSent flags the notification as sent and the infraction as notified.
// The notification date of the infraction is only set the first time.
func (r *notificationRepository) MarkSent(ctx context.Context, id int64, email string, now time.Time) (*entity.Notification, error) {
	var out *entity.Notification
	now = now.UTC()
	err := r.db.inTx(ctx, func(tx *sql.Tx) error {
		b := r.db.builder()
		mark := b.Update(tableNotifications).
			Set("estado", string(constants.NotificationSent)).
			Set("email_destino", email).
			Set("enviado_en", now).
			Where(entsql.EQ("id", id))
		res, err := exec(ctx, tx, mark)
		if err != nil {
			return fmt.Errorf("mark notification sent: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return fmt.Errorf("notification %d: %w", id, common.ErrNotFound)
		}

		n, err := r.getWhere(ctx, tx, "id", id)
		if err != nil {
			return fmt.Errorf("%w: read notification: %v", common.ErrDatabase, err)
		}

		steps := []*entsql.UpdateBuilder{
			b.Update(tableInfractions).
				Set("notificado", true).
				Where(entsql.EQ("id", n.InfractionID)),
			b.Update(tableInfractions).
				Set("fecha_notificacion", now).
				Where(entsql.And(entsql.EQ("id", n.InfractionID), entsql.IsNull("fecha_notificacion"))),
			b.Update(tableInfractions).
				Set("estado", string(constants.StatusNotified)).
				Where(entsql.And(entsql.EQ("id", n.InfractionID), entsql.EQ("estado", string(constants.StatusValidated)))),
		}
		for _, step := range steps {
			if _, err := exec(ctx, tx, step); err != nil {
				return fmt.Errorf("mark infraction notified: %w", err)
			}
		}
		out = n
		return nil
	})
	if err != nil {
		r.logger.Error("notification mark sent failed", "notification_id", id, "error", err)
		return nil, err
	}
	r.logger.Info("notification marked sent", "notification_id", id, "act_number", out.ActNumber)
	return out, nil
}

// PendingInfractions returns ids of acts that have no notification record
// yet, oldest first. Voided acts are skipped. A zero limit means no limit.
func (r *notificationRepository) PendingInfractions(ctx context.Context, limit int) ([]int64, error) {
	b := r.db.builder()
	i := b.Table(tableInfractions).As("i")
	n := b.Table(tableNotifications).As("n")
	sel := b.Select(i.C("id")).
		From(i).
		LeftJoin(n).
		On(i.C("id"), n.C("infraccion_id")).
		Where(entsql.And(
			entsql.IsNull(n.C("id")),
			entsql.NEQ(i.C("estado"), string(constants.StatusVoided)),
		)).
		OrderBy(i.C("id"))
	if limit > 0 {
		sel.Limit(limit)
	}
	query, args := sel.Query()
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: pending infractions: %v", common.ErrDatabase, err)
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
