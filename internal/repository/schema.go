package repository

import (
	"context"
	"fmt"
	"strings"

	"entgo.io/ent/dialect"

	"github.com/joseph-ayodele/seguridadvial/internal/common"
)

// Table names.
const (
	tableCounters      = "correlativos"
	tableOwners        = "titulares"
	tableInfractions   = "infracciones"
	tableNotifications = "notificaciones"
)

// personColumns are the suffixes shared by conductor_* and titular_* columns.
var personColumns = []string{"nombre", "dni", "domicilio", "licencia", "clase", "cp", "departamento", "provincia"}

func personDDL(prefix string) string {
	cols := make([]string, len(personColumns))
	for i, c := range personColumns {
		cols[i] = fmt.Sprintf("%s_%s TEXT NOT NULL DEFAULT ''", prefix, c)
	}
	return strings.Join(cols, ",\n\t")
}

type ddlTypes struct {
	pk, bigint, float, boolean, timestamp string
}

var (
	postgresTypes = ddlTypes{pk: "BIGSERIAL PRIMARY KEY", bigint: "BIGINT", float: "DOUBLE PRECISION", boolean: "BOOLEAN", timestamp: "TIMESTAMPTZ"}
	sqliteTypes   = ddlTypes{pk: "INTEGER PRIMARY KEY AUTOINCREMENT", bigint: "INTEGER", float: "REAL", boolean: "BOOLEAN", timestamp: "DATETIME"}
)

func schemaStatements(dialectName string) []string {
	t := sqliteTypes
	if dialectName == dialect.Postgres {
		t = postgresTypes
	}
	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS correlativos (
	serie TEXT PRIMARY KEY,
	ultimo %s NOT NULL DEFAULT 0
)`, t.bigint),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS titulares (
	dominio TEXT PRIMARY KEY,
	%s,
	vehiculo_tipo TEXT NOT NULL DEFAULT '',
	vehiculo_marca TEXT NOT NULL DEFAULT '',
	vehiculo_modelo TEXT NOT NULL DEFAULT ''
)`, personDDL("titular")),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS infracciones (
	id %[1]s,
	serie TEXT NOT NULL,
	nro_correlativo %[2]s NOT NULL,
	dominio TEXT NOT NULL,
	tipo_infraccion TEXT NOT NULL,
	velocidad_medida %[3]s NOT NULL DEFAULT 0,
	velocidad_autorizada %[3]s NOT NULL DEFAULT 0,
	ubicacion_texto TEXT NOT NULL DEFAULT '',
	arteria TEXT NOT NULL DEFAULT '',
	lat %[3]s,
	lng %[3]s,
	foto_url TEXT NOT NULL DEFAULT '',
	cam_serie TEXT NOT NULL DEFAULT '',
	vehiculo_tipo TEXT NOT NULL DEFAULT '',
	vehiculo_marca TEXT NOT NULL DEFAULT '',
	vehiculo_modelo TEXT NOT NULL DEFAULT '',
	%[6]s,
	%[7]s,
	observaciones TEXT NOT NULL DEFAULT '',
	estado TEXT NOT NULL,
	notificado %[4]s NOT NULL DEFAULT FALSE,
	fecha_registro %[5]s NOT NULL,
	fecha_labrado %[5]s NOT NULL,
	fecha_notificacion %[5]s,
	UNIQUE (serie, nro_correlativo)
)`, t.pk, t.bigint, t.float, t.boolean, t.timestamp, personDDL("conductor"), personDDL("titular")),
		`CREATE INDEX IF NOT EXISTS ix_infracciones_dominio ON infracciones (dominio)`,
		`CREATE INDEX IF NOT EXISTS ix_infracciones_fecha_labrado ON infracciones (fecha_labrado)`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS notificaciones (
	id %[1]s,
	infraccion_id %[2]s NOT NULL REFERENCES infracciones (id),
	pdf_path TEXT NOT NULL,
	estado TEXT NOT NULL,
	email_destino TEXT,
	creado_en %[3]s NOT NULL,
	enviado_en %[3]s
)`, t.pk, t.bigint, t.timestamp),
		`CREATE UNIQUE INDEX IF NOT EXISTS ux_notificaciones_infraccion ON notificaciones (infraccion_id)`,
	}
}

// EnsureSchema creates the tables and indexes when missing. It is safe to
// run on every start.
func EnsureSchema(ctx context.Context, db *DB) error {
	for _, stmt := range schemaStatements(db.Dialect) {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("%w: ensure schema: %v", common.ErrDatabase, err)
		}
	}
	return nil
}
