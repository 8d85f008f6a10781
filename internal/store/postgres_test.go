package store

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terrafield/crewsheet-cli/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	return NewPostgresWithPool(mock), mock
}

func TestPostgresStore_GetSheet_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT id, user_id, image_path, status`).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetSheet(context.Background(), "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sheet not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetSheet_WithResult(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	now := time.Now().UTC()
	result := []byte(`{"valid": true, "confidence": 0.85, "table_headers": ["START"]}`)
	rows := pgxmock.NewRows([]string{"id", "user_id", "image_path", "status", "needs_review", "error_message", "result", "created_at", "updated_at"}).
		AddRow("s1", "user-1", "/tmp/a.jpg", model.SheetStatusCompleted, true, "", &result, now, now)

	mock.ExpectQuery(`SELECT id, user_id, image_path, status`).
		WithArgs("s1").
		WillReturnRows(rows)

	sh, err := s.GetSheet(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, model.SheetStatusCompleted, sh.Status)
	assert.True(t, sh.NeedsReview)
	require.NotNil(t, sh.Result)
	assert.InDelta(t, 0.85, sh.Result.Confidence, 1e-9)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateSheetStatus_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE sheets SET status`).
		WithArgs(string(model.SheetStatusProcessing), pgxmock.AnyArg(), "missing").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.UpdateSheetStatus(context.Background(), "missing", model.SheetStatusProcessing)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sheet not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CompleteSheet(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE sheets SET status = \$1, result = \$2, needs_review = \$3`).
		WithArgs(string(model.SheetStatusCompleted), pgxmock.AnyArg(), false, pgxmock.AnyArg(), "s1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := s.CompleteSheet(context.Background(), "s1", sampleResult(), false)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetProfile_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT data FROM profiles`).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	p, err := s.GetProfile(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, p)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetTemplate_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT data FROM templates`).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	tmpl, err := s.GetTemplate(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, tmpl)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveTemplate_Upsert(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO templates .+ ON CONFLICT`).
		WithArgs("t1", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := s.SaveTemplate(context.Background(), &model.SheetTemplate{ID: "t1", Name: "harvest"})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveFieldConfidence_BulkUpsert(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TEMP TABLE "_tmp_upsert_field_confidence"`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_tmp_upsert_field_confidence"}, fieldConfidenceColumns).
		WillReturnResult(2)
	mock.ExpectExec(`INSERT INTO "field_confidence"`).
		WillReturnResult(pgxmock.NewResult("INSERT", 2))
	mock.ExpectCommit()

	err := s.SaveFieldConfidence(context.Background(), []model.FieldConfidence{
		{SheetID: "s1", FieldName: "START", EmployeeIndex: 0, Confidence: 0.8},
		{SheetID: "s1", FieldName: "STOP", EmployeeIndex: 0, Confidence: 0.5},
	})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_AverageFieldConfidence(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	rows := pgxmock.NewRows([]string{"field_name", "avg"}).
		AddRow("START", 0.8).
		AddRow("STOP", 0.6)
	mock.ExpectQuery(`SELECT fc.field_name, AVG`).
		WithArgs("user-1").
		WillReturnRows(rows)

	avgs, err := s.AverageFieldConfidence(context.Background(), "user-1")
	require.NoError(t, err)
	assert.InDelta(t, 0.8, avgs["START"], 1e-9)
	assert.InDelta(t, 0.6, avgs["STOP"], 1e-9)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_RecordEdit(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO edits`).
		WithArgs(pgxmock.AnyArg(), "s1", "user-1", "", "START", 0, "✓", "7:00", "checkmark_to_time", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	e := &model.UserEdit{
		SheetID: "s1", UserID: "user-1", FieldName: "START",
		OldValue: "✓", NewValue: "7:00", CorrectionType: "checkmark_to_time",
	}
	err := s.RecordEdit(context.Background(), e)
	assert.NoError(t, err)
	assert.NotEmpty(t, e.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
