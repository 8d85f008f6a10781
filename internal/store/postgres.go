package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/terrafield/crewsheet-cli/internal/db"
	"github.com/terrafield/crewsheet-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the hottest store operations.
var preparedStatements = map[string]string{
	"insert_sheet":        `INSERT INTO sheets (id, user_id, image_path, status, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6)`,
	"get_sheet":           `SELECT id, user_id, image_path, status, needs_review, error_message, result, created_at, updated_at FROM sheets WHERE id = $1`,
	"update_sheet_status": `UPDATE sheets SET status = $1, updated_at = $2 WHERE id = $3`,
	"complete_sheet":      `UPDATE sheets SET status = $1, result = $2, needs_review = $3, error_message = '', updated_at = $4 WHERE id = $5`,
	"get_profile":         `SELECT data FROM profiles WHERE id = $1`,
	"get_template":        `SELECT data FROM templates WHERE id = $1`,
	"insert_edit":         `INSERT INTO edits (id, sheet_id, user_id, session_id, field_name, employee_index, old_value, new_value, correction_type, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresWithPool wraps an existing pool, mainly for tests.
func NewPostgresWithPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS sheets (
	id            TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	user_id       TEXT NOT NULL DEFAULT '',
	image_path    TEXT NOT NULL,
	status        TEXT NOT NULL DEFAULT 'pending',
	needs_review  BOOLEAN NOT NULL DEFAULT false,
	error_message TEXT NOT NULL DEFAULT '',
	result        JSONB,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS assessments (
	id                  TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	sheet_id            TEXT NOT NULL REFERENCES sheets(id),
	extraction_accuracy DOUBLE PRECISION NOT NULL,
	data_completeness   DOUBLE PRECISION NOT NULL,
	format_consistency  DOUBLE PRECISION NOT NULL,
	issues              JSONB,
	created_at          TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS field_confidence (
	id             TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	sheet_id       TEXT NOT NULL REFERENCES sheets(id),
	field_name     TEXT NOT NULL,
	employee_index INTEGER NOT NULL,
	confidence     DOUBLE PRECISION NOT NULL,
	is_uncertain   BOOLEAN NOT NULL DEFAULT false,
	needs_review   BOOLEAN NOT NULL DEFAULT false,
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE(sheet_id, field_name, employee_index)
);

CREATE TABLE IF NOT EXISTS profiles (
	id         TEXT PRIMARY KEY,
	data       JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS templates (
	id         TEXT PRIMARY KEY,
	data       JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS edits (
	id              TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	sheet_id        TEXT NOT NULL,
	user_id         TEXT NOT NULL DEFAULT '',
	session_id      TEXT NOT NULL DEFAULT '',
	field_name      TEXT NOT NULL,
	employee_index  INTEGER NOT NULL,
	old_value       TEXT NOT NULL DEFAULT '',
	new_value       TEXT NOT NULL DEFAULT '',
	correction_type TEXT NOT NULL DEFAULT '',
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_sheets_user_status ON sheets(user_id, status);
CREATE INDEX IF NOT EXISTS idx_assessments_sheet_id ON assessments(sheet_id);
CREATE INDEX IF NOT EXISTS idx_field_confidence_sheet_id ON field_confidence(sheet_id);
CREATE INDEX IF NOT EXISTS idx_edits_user_created ON edits(user_id, created_at);
CREATE INDEX IF NOT EXISTS idx_edits_field_name ON edits(field_name);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) CreateSheet(ctx context.Context, userID, imagePath string) (*model.Sheet, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO sheets (id, user_id, image_path, status, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		id, userID, imagePath, string(model.SheetStatusPending), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert sheet")
	}

	return &model.Sheet{
		ID:        id,
		UserID:    userID,
		ImagePath: imagePath,
		Status:    model.SheetStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *PostgresStore) GetSheet(ctx context.Context, sheetID string) (*model.Sheet, error) {
	var sh model.Sheet
	var resultJSON *[]byte

	err := s.pool.QueryRow(ctx,
		`SELECT id, user_id, image_path, status, needs_review, error_message, result, created_at, updated_at FROM sheets WHERE id = $1`,
		sheetID,
	).Scan(&sh.ID, &sh.UserID, &sh.ImagePath, &sh.Status, &sh.NeedsReview, &sh.ErrorMessage, &resultJSON, &sh.CreatedAt, &sh.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.New("sheet not found")
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get sheet %s", sheetID)
	}

	if resultJSON != nil {
		sh.Result = &model.ExtractionResult{}
		if err := json.Unmarshal(*resultJSON, sh.Result); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal result")
		}
	}
	return &sh, nil
}

func (s *PostgresStore) UpdateSheetStatus(ctx context.Context, sheetID string, status model.SheetStatus) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE sheets SET status = $1, updated_at = $2 WHERE id = $3`,
		string(status), time.Now().UTC(), sheetID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update sheet status %s", sheetID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("sheet not found: %s", sheetID)
	}
	return nil
}

func (s *PostgresStore) CompleteSheet(ctx context.Context, sheetID string, result *model.ExtractionResult, needsReview bool) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal result")
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE sheets SET status = $1, result = $2, needs_review = $3, error_message = '', updated_at = $4 WHERE id = $5`,
		string(model.SheetStatusCompleted), resultJSON, needsReview, time.Now().UTC(), sheetID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete sheet %s", sheetID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("sheet not found: %s", sheetID)
	}
	return nil
}

func (s *PostgresStore) FailSheet(ctx context.Context, sheetID, message string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE sheets SET status = $1, error_message = $2, updated_at = $3 WHERE id = $4`,
		string(model.SheetStatusFailed), message, time.Now().UTC(), sheetID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: fail sheet %s", sheetID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("sheet not found: %s", sheetID)
	}
	return nil
}

func (s *PostgresStore) ListSheets(ctx context.Context, filter SheetFilter) ([]model.Sheet, error) {
	query := `SELECT id, user_id, image_path, status, needs_review, error_message, result, created_at, updated_at FROM sheets WHERE true`
	args := []any{}
	argIdx := 1

	if filter.UserID != "" {
		query += fmt.Sprintf(` AND user_id = $%d`, argIdx)
		args = append(args, filter.UserID)
		argIdx++
	}
	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	if !filter.Since.IsZero() {
		query += fmt.Sprintf(` AND created_at >= $%d`, argIdx)
		args = append(args, filter.Since.UTC())
		argIdx++
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list sheets")
	}
	defer rows.Close()

	var sheets []model.Sheet
	for rows.Next() {
		var sh model.Sheet
		var resultJSON *[]byte

		if err := rows.Scan(&sh.ID, &sh.UserID, &sh.ImagePath, &sh.Status, &sh.NeedsReview, &sh.ErrorMessage, &resultJSON, &sh.CreatedAt, &sh.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan sheet")
		}
		if resultJSON != nil {
			sh.Result = &model.ExtractionResult{}
			if err := json.Unmarshal(*resultJSON, sh.Result); err != nil {
				return nil, eris.Wrap(err, "postgres: unmarshal result")
			}
		}
		sheets = append(sheets, sh)
	}
	return sheets, eris.Wrap(rows.Err(), "postgres: list sheets iterate")
}

func (s *PostgresStore) SaveAssessment(ctx context.Context, a *model.SheetAssessment) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}

	issuesJSON, err := json.Marshal(a.Issues)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal issues")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO assessments (id, sheet_id, extraction_accuracy, data_completeness, format_consistency, issues, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		a.ID, a.SheetID, a.ExtractionAccuracy, a.DataCompleteness, a.FormatConsistency, issuesJSON, a.CreatedAt,
	)
	return eris.Wrap(err, "postgres: insert assessment")
}

func (s *PostgresStore) AssessmentsSince(ctx context.Context, userID string, since time.Time) ([]model.SheetAssessment, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT a.id, a.sheet_id, a.extraction_accuracy, a.data_completeness, a.format_consistency, a.issues, a.created_at
		 FROM assessments a JOIN sheets s ON s.id = a.sheet_id
		 WHERE s.user_id = $1 AND a.created_at >= $2
		 ORDER BY a.created_at DESC`,
		userID, since.UTC(),
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list assessments")
	}
	defer rows.Close()

	var out []model.SheetAssessment
	for rows.Next() {
		var a model.SheetAssessment
		var issuesJSON *[]byte
		if err := rows.Scan(&a.ID, &a.SheetID, &a.ExtractionAccuracy, &a.DataCompleteness, &a.FormatConsistency, &issuesJSON, &a.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan assessment")
		}
		if issuesJSON != nil {
			if err := json.Unmarshal(*issuesJSON, &a.Issues); err != nil {
				return nil, eris.Wrap(err, "postgres: unmarshal issues")
			}
		}
		out = append(out, a)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list assessments iterate")
}

// fieldConfidenceColumns matches the bulk-upsert row layout used below.
var fieldConfidenceColumns = []string{
	"id", "sheet_id", "field_name", "employee_index",
	"confidence", "is_uncertain", "needs_review", "updated_at",
}

func (s *PostgresStore) SaveFieldConfidence(ctx context.Context, records []model.FieldConfidence) error {
	if len(records) == 0 {
		return nil
	}

	rows := make([][]any, 0, len(records))
	for i := range records {
		rec := &records[i]
		if rec.ID == "" {
			rec.ID = uuid.New().String()
		}
		rec.UpdatedAt = time.Now().UTC()
		rows = append(rows, []any{
			rec.ID, rec.SheetID, rec.FieldName, rec.EmployeeIndex,
			rec.Confidence, rec.IsUncertain, rec.NeedsReview, rec.UpdatedAt,
		})
	}

	_, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "field_confidence",
		Columns:      fieldConfidenceColumns,
		ConflictKeys: []string{"sheet_id", "field_name", "employee_index"},
		UpdateCols:   []string{"confidence", "is_uncertain", "needs_review", "updated_at"},
	}, rows)
	return eris.Wrap(err, "postgres: save field confidence")
}

func (s *PostgresStore) GetFieldConfidence(ctx context.Context, sheetID, fieldName string, employeeIndex int) (*model.FieldConfidence, error) {
	var fc model.FieldConfidence
	err := s.pool.QueryRow(ctx,
		`SELECT id, sheet_id, field_name, employee_index, confidence, is_uncertain, needs_review, updated_at
		 FROM field_confidence WHERE sheet_id = $1 AND field_name = $2 AND employee_index = $3`,
		sheetID, fieldName, employeeIndex,
	).Scan(&fc.ID, &fc.SheetID, &fc.FieldName, &fc.EmployeeIndex, &fc.Confidence, &fc.IsUncertain, &fc.NeedsReview, &fc.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get field confidence")
	}
	return &fc, nil
}

func (s *PostgresStore) ListFieldConfidence(ctx context.Context, sheetID string) ([]model.FieldConfidence, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, sheet_id, field_name, employee_index, confidence, is_uncertain, needs_review, updated_at
		 FROM field_confidence WHERE sheet_id = $1
		 ORDER BY employee_index, field_name`,
		sheetID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list field confidence")
	}
	defer rows.Close()

	var out []model.FieldConfidence
	for rows.Next() {
		var fc model.FieldConfidence
		if err := rows.Scan(&fc.ID, &fc.SheetID, &fc.FieldName, &fc.EmployeeIndex, &fc.Confidence, &fc.IsUncertain, &fc.NeedsReview, &fc.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan field confidence")
		}
		out = append(out, fc)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list field confidence iterate")
}

func (s *PostgresStore) UpdateFieldConfidence(ctx context.Context, rec *model.FieldConfidence) error {
	rec.UpdatedAt = time.Now().UTC()
	tag, err := s.pool.Exec(ctx,
		`UPDATE field_confidence SET confidence = $1, is_uncertain = $2, needs_review = $3, updated_at = $4
		 WHERE sheet_id = $5 AND field_name = $6 AND employee_index = $7`,
		rec.Confidence, rec.IsUncertain, rec.NeedsReview, rec.UpdatedAt,
		rec.SheetID, rec.FieldName, rec.EmployeeIndex,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update field confidence %s/%s", rec.SheetID, rec.FieldName)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("field confidence not found: %s/%s", rec.SheetID, rec.FieldName)
	}
	return nil
}

func (s *PostgresStore) AverageFieldConfidence(ctx context.Context, userID string) (map[string]float64, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT fc.field_name, AVG(fc.confidence)
		 FROM field_confidence fc JOIN sheets s ON s.id = fc.sheet_id
		 WHERE s.user_id = $1
		 GROUP BY fc.field_name`,
		userID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: average field confidence")
	}
	defer rows.Close()

	out := map[string]float64{}
	for rows.Next() {
		var name string
		var avg float64
		if err := rows.Scan(&name, &avg); err != nil {
			return nil, eris.Wrap(err, "postgres: scan field average")
		}
		out[name] = avg
	}
	return out, eris.Wrap(rows.Err(), "postgres: average field confidence iterate")
}

func (s *PostgresStore) GetProfile(ctx context.Context, id string) (*model.CompanyProfile, error) {
	var data []byte
	err := s.pool.QueryRow(ctx, `SELECT data FROM profiles WHERE id = $1`, id).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get profile")
	}

	var p model.CompanyProfile
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal profile")
	}
	return &p, nil
}

func (s *PostgresStore) SaveProfile(ctx context.Context, p *model.CompanyProfile) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	data, err := json.Marshal(p)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal profile")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO profiles (id, data, created_at, updated_at) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (id) DO UPDATE SET data = EXCLUDED.data, updated_at = EXCLUDED.updated_at`,
		p.ID, data, p.CreatedAt, p.UpdatedAt,
	)
	return eris.Wrap(err, "postgres: save profile")
}

func (s *PostgresStore) GetTemplate(ctx context.Context, id string) (*model.SheetTemplate, error) {
	var data []byte
	err := s.pool.QueryRow(ctx, `SELECT data FROM templates WHERE id = $1`, id).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get template")
	}

	var t model.SheetTemplate
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal template")
	}
	return &t, nil
}

func (s *PostgresStore) SaveTemplate(ctx context.Context, t *model.SheetTemplate) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	t.UpdatedAt = time.Now().UTC()

	data, err := json.Marshal(t)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal template")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO templates (id, data, updated_at) VALUES ($1, $2, $3)
		 ON CONFLICT (id) DO UPDATE SET data = EXCLUDED.data, updated_at = EXCLUDED.updated_at`,
		t.ID, data, t.UpdatedAt,
	)
	return eris.Wrap(err, "postgres: save template")
}

func (s *PostgresStore) ListTemplates(ctx context.Context) ([]model.SheetTemplate, error) {
	rows, err := s.pool.Query(ctx, `SELECT data FROM templates ORDER BY updated_at DESC`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list templates")
	}
	defer rows.Close()

	var out []model.SheetTemplate
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, eris.Wrap(err, "postgres: scan template")
		}
		var t model.SheetTemplate
		if err := json.Unmarshal(data, &t); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal template")
		}
		out = append(out, t)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list templates iterate")
}

func (s *PostgresStore) RecordEdit(ctx context.Context, e *model.UserEdit) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO edits (id, sheet_id, user_id, session_id, field_name, employee_index, old_value, new_value, correction_type, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		e.ID, e.SheetID, e.UserID, e.SessionID, e.FieldName, e.EmployeeIndex,
		e.OldValue, e.NewValue, e.CorrectionType, e.CreatedAt,
	)
	return eris.Wrap(err, "postgres: insert edit")
}

func (s *PostgresStore) EditsSince(ctx context.Context, userID string, since time.Time) ([]model.UserEdit, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, sheet_id, user_id, session_id, field_name, employee_index, old_value, new_value, correction_type, created_at
		 FROM edits WHERE user_id = $1 AND created_at >= $2
		 ORDER BY created_at DESC`,
		userID, since.UTC(),
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list edits")
	}
	defer rows.Close()

	var out []model.UserEdit
	for rows.Next() {
		var e model.UserEdit
		if err := rows.Scan(&e.ID, &e.SheetID, &e.UserID, &e.SessionID, &e.FieldName, &e.EmployeeIndex,
			&e.OldValue, &e.NewValue, &e.CorrectionType, &e.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan edit")
		}
		out = append(out, e)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list edits iterate")
}
