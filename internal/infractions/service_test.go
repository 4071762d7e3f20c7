package infractions

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/seguridadvial/constants"
	"github.com/joseph-ayodele/seguridadvial/internal/common"
	"github.com/joseph-ayodele/seguridadvial/internal/entity"
	"github.com/joseph-ayodele/seguridadvial/internal/notify"
	"github.com/joseph-ayodele/seguridadvial/internal/repository"
)

var (
	testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))
	testNow    = time.Date(2025, 6, 12, 12, 0, 0, 0, time.UTC)
	testIssued = time.Date(2025, 6, 12, 10, 55, 16, 0, time.UTC)
)

type fakeGenerator struct {
	calls []int64
	err   error
}

func (f *fakeGenerator) Generate(_ context.Context, id int64) (*notify.GenerateResult, error) {
	f.calls = append(f.calls, id)
	if f.err != nil {
		return nil, f.err
	}
	return &notify.GenerateResult{
		Notification: &entity.Notification{ID: 9, InfractionID: id, State: constants.NotificationGenerated},
		Path:         "/tmp/ACTA.pdf",
		Warnings:     []string{"template missing"},
	}, nil
}

type fixture struct {
	svc       *Service
	gen       *fakeGenerator
	repo      repository.InfractionRepository
	uploadDir string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	dir := t.TempDir()
	db, err := repository.Open(ctx, repository.Config{DSN: "sqlite://" + filepath.Join(dir, "actas.db")}, testLogger)
	require.NoError(t, err)
	t.Cleanup(func() { repository.Close(db, testLogger) })
	require.NoError(t, repository.EnsureSchema(ctx, db))

	repo := repository.NewInfractionRepository(db, nil, testLogger)
	gen := &fakeGenerator{}
	uploads := filepath.Join(dir, "uploads")
	require.NoError(t, os.MkdirAll(uploads, 0o755))
	svc := NewService(repo, repository.NewStatsRepository(db), Options{
		Generator: gen,
		UploadDir: uploads,
		Clock:     func() time.Time { return testNow },
	}, testLogger)
	return &fixture{svc: svc, gen: gen, repo: repo, uploadDir: uploads}
}

func cameraRequest() entity.CreateInfractionRequest {
	return entity.CreateInfractionRequest{
		Domain:          " ab123cd ",
		IssuedAt:        testIssued,
		MeasuredSpeed:   35,
		AuthorizedSpeed: 30,
		Location:        "AYACUCHO",
		CameraSerial:    "TC009925",
	}
}

func TestCreate_CameraAct(t *testing.T) {
	f := newFixture(t)

	res, err := f.svc.Create(context.Background(), cameraRequest())
	require.NoError(t, err)

	inf := res.Infraction
	assert.Equal(t, "A-0000001", inf.ActNumber())
	assert.Equal(t, "AB123CD", inf.Domain)
	assert.Equal(t, constants.DefaultInfractionType, inf.Type)
	assert.Equal(t, constants.StatusValidated, inf.Status)
	assert.False(t, inf.Notified)
	assert.Nil(t, inf.NotifiedAt)
	assert.True(t, testNow.Equal(inf.LoggedAt))
	assert.True(t, testIssued.Equal(inf.IssuedAt))

	assert.Equal(t, []int64{inf.ID}, f.gen.calls)
	require.NotNil(t, res.Notification)
	assert.Equal(t, constants.NotificationGenerated, res.Notification.State)
	assert.Equal(t, "/tmp/ACTA.pdf", res.DocumentPath)
	assert.Equal(t, []string{"template missing"}, res.Warnings)

	second, err := f.svc.Create(context.Background(), cameraRequest())
	require.NoError(t, err)
	assert.Equal(t, "A-0000002", second.Infraction.ActNumber())
}

func TestCreate_InPersonActIsNotifiedOnIssue(t *testing.T) {
	f := newFixture(t)
	req := cameraRequest()
	req.Series = "p"
	req.Driver = entity.Person{Name: "Juan Perez", DNI: "30111222"}

	res, err := f.svc.Create(context.Background(), req)
	require.NoError(t, err)

	inf := res.Infraction
	assert.Equal(t, "P-0000001", inf.ActNumber())
	assert.Equal(t, constants.StatusNotified, inf.Status)
	assert.True(t, inf.Notified)
	require.NotNil(t, inf.NotifiedAt)
	assert.True(t, testIssued.Equal(*inf.NotifiedAt))
	assert.Equal(t, "Juan Perez", inf.Driver.Name)
}

func TestCreate_GenerationFailureIsAWarning(t *testing.T) {
	f := newFixture(t)
	f.gen.err = common.ErrTemplateUnavailable

	res, err := f.svc.Create(context.Background(), cameraRequest())
	require.NoError(t, err)
	assert.Nil(t, res.Notification)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "template unavailable")

	got, err := f.svc.Get(context.Background(), res.Infraction.ID)
	require.NoError(t, err)
	assert.Equal(t, "A-0000001", got.ActNumber())
}

func TestCreate_Validation(t *testing.T) {
	cases := map[string]func(*entity.CreateInfractionRequest){
		"missing domain":   func(r *entity.CreateInfractionRequest) { r.Domain = "  " },
		"missing issued":   func(r *entity.CreateInfractionRequest) { r.IssuedAt = time.Time{} },
		"negative speed":   func(r *entity.CreateInfractionRequest) { r.MeasuredSpeed = -1 },
		"negative limit":   func(r *entity.CreateInfractionRequest) { r.AuthorizedSpeed = -30 },
		"oversized domain": func(r *entity.CreateInfractionRequest) { r.Domain = "ABCDEFGHIJKLMNOPQ" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t)
			req := cameraRequest()
			mutate(&req)

			_, err := f.svc.Create(context.Background(), req)
			require.Error(t, err)
			assert.True(t, errors.Is(err, common.ErrInvalidInput))
			assert.Empty(t, f.gen.calls)

			list, err := f.svc.List(context.Background(), entity.InfractionFilter{})
			require.NoError(t, err)
			assert.Empty(t, list)
		})
	}
}

func TestCreate_WithoutGenerator(t *testing.T) {
	f := newFixture(t)
	f.svc.generator = nil

	res, err := f.svc.Create(context.Background(), cameraRequest())
	require.NoError(t, err)
	assert.Nil(t, res.Notification)
	assert.Empty(t, res.Warnings)
}

func TestCreateFromJSON(t *testing.T) {
	f := newFixture(t)

	res, err := f.svc.CreateFromJSON(context.Background(), []byte(`{
		"domain": "ac987zz",
		"issued_at": "2025-06-12T10:55:16Z",
		"measured_speed": 35,
		"authorized_speed": 30,
		"vehicle": {"type": "Auto", "make": "Ford", "model": "Ka"}
	}`))
	require.NoError(t, err)
	assert.Equal(t, "AC987ZZ", res.Infraction.Domain)
	assert.Equal(t, "Ford", res.Infraction.Vehicle.Make)
	assert.True(t, testIssued.Equal(res.Infraction.IssuedAt))

	bad := []string{
		`{"issued_at": "2025-06-12T10:55:16Z", "measured_speed": 35}`,
		`{"domain": "X", "issued_at": "2025-06-12T10:55:16Z", "measured_speed": -1}`,
		`{"domain": "X", "issued_at": "2025-06-12T10:55:16Z", "measured_speed": 1, "act_number": "A-1"}`,
		`not json`,
	}
	for _, raw := range bad {
		_, err := f.svc.CreateFromJSON(context.Background(), []byte(raw))
		assert.True(t, errors.Is(err, common.ErrInvalidInput), raw)
	}
}

func TestListAndPatch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res, err := f.svc.Create(ctx, cameraRequest())
	require.NoError(t, err)

	list, err := f.svc.List(ctx, entity.InfractionFilter{Domain: "ab123cd"})
	require.NoError(t, err)
	require.Len(t, list, 1)

	list, err = f.svc.List(ctx, entity.InfractionFilter{ActNumber: "a-0000001"})
	require.NoError(t, err)
	require.Len(t, list, 1)

	_, err = f.svc.List(ctx, entity.InfractionFilter{Limit: -1})
	assert.True(t, errors.Is(err, common.ErrInvalidInput))

	neg := -5.0
	_, err = f.svc.Patch(ctx, res.Infraction.ID, entity.InfractionPatch{MeasuredSpeed: &neg})
	assert.True(t, errors.Is(err, common.ErrInvalidInput))

	loc := "RUTA 3 KM 12"
	speed := 41.5
	got, err := f.svc.Patch(ctx, res.Infraction.ID, entity.InfractionPatch{Location: &loc, MeasuredSpeed: &speed})
	require.NoError(t, err)
	assert.Equal(t, loc, got.Location)
	assert.Equal(t, 41.5, got.MeasuredSpeed)
	assert.Equal(t, 30.0, got.AuthorizedSpeed)

	_, err = f.svc.Patch(ctx, 999, entity.InfractionPatch{Location: &loc})
	assert.True(t, errors.Is(err, common.ErrNotFound))
}

func TestStats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Create(ctx, cameraRequest())
	require.NoError(t, err)
	req := cameraRequest()
	req.Series = constants.SeriesInPerson
	_, err = f.svc.Create(ctx, req)
	require.NoError(t, err)

	sum, err := f.svc.Stats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, sum.Total)
	assert.EqualValues(t, 1, sum.Validated)
	assert.EqualValues(t, 1, sum.Notified)
	assert.EqualValues(t, 1, sum.BySeries["A"])
	assert.EqualValues(t, 1, sum.BySeries["P"])
}

func TestPrefill(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	txt := "Nr Serial=TC009925\nFecha=12/06/2025\nHora=10:55:16\nUbicación=AYACUCHO\nVelocidad medida=35 km/h\n"
	require.NoError(t, os.WriteFile(filepath.Join(f.uploadDir, "cam.txt"), []byte(txt), 0o644))

	res, err := f.svc.Prefill(ctx, "cam.txt", "cam.jpg")
	require.NoError(t, err)
	require.NotNil(t, res.Fields.CameraSerial)
	assert.Equal(t, "TC009925", *res.Fields.CameraSerial)
	require.NotNil(t, res.Fields.IssuedAt)
	assert.True(t, testIssued.Equal(*res.Fields.IssuedAt))
	assert.Nil(t, res.Fields.AuthorizedSpeed)
	assert.Equal(t, []PrefillFile{{Kind: "image", Ref: "cam.jpg"}, {Kind: "text", Ref: "cam.txt"}}, res.Files)

	res, err = f.svc.Prefill(ctx, "missing.txt", "")
	require.NoError(t, err)
	assert.True(t, res.Fields.IsEmpty())
	assert.Len(t, res.Files, 1)

	_, err = f.svc.Prefill(ctx, "", "")
	assert.True(t, errors.Is(err, common.ErrInvalidInput))
}
