package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"entgo.io/ent/dialect"
	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockDB(t *testing.T) (*DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return NewDB(sqlDB, dialect.Postgres), mock
}

func TestCorrelativeAllocator_PostgresStatements(t *testing.T) {
	ctx := context.Background()
	db, mock := newMockDB(t)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO "correlativos" .+ ON CONFLICT .+ DO NOTHING`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE "correlativos" SET "ultimo" = .+ WHERE "serie" = \$2`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT "ultimo" FROM "correlativos" WHERE "serie" = \$1`).
		WithArgs("A").
		WillReturnRows(sqlmock.NewRows([]string{"ultimo"}).AddRow(int64(42)))
	mock.ExpectCommit()

	tx, err := db.BeginTx(ctx, nil)
	require.NoError(t, err)
	n, err := NewCorrelativeAllocator(db).Next(ctx, tx, "A")
	require.NoError(t, err)
	assert.Equal(t, int64(42), n)
	require.NoError(t, tx.Commit())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInfractionRepository_InsertFailureRollsBack(t *testing.T) {
	ctx := context.Background()
	db, mock := newMockDB(t)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO "correlativos"`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE "correlativos"`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT "ultimo" FROM "correlativos"`).
		WillReturnRows(sqlmock.NewRows([]string{"ultimo"}).AddRow(int64(7)))
	mock.ExpectQuery(`INSERT INTO "infracciones" .+ RETURNING "id"`).
		WillReturnError(errors.New("unique violation"))
	mock.ExpectRollback()

	repo := NewInfractionRepository(db, nil, testLogger)
	_, err := repo.CreateNumbered(ctx, newInfraction("A", "AB123CD", time.Now().UTC()))
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInfractionRepository_AllocatorFailureRollsBack(t *testing.T) {
	ctx := context.Background()
	db, mock := newMockDB(t)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO "correlativos"`).WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	repo := NewInfractionRepository(db, nil, testLogger)
	_, err := repo.CreateNumbered(ctx, newInfraction("A", "AB123CD", time.Now().UTC()))
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
