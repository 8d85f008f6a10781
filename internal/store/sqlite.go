package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/terrafield/crewsheet-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS sheets (
	id            TEXT PRIMARY KEY,
	user_id       TEXT NOT NULL DEFAULT '',
	image_path    TEXT NOT NULL,
	status        TEXT NOT NULL DEFAULT 'pending',
	needs_review  INTEGER NOT NULL DEFAULT 0,
	error_message TEXT NOT NULL DEFAULT '',
	result        TEXT,
	created_at    DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at    DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS assessments (
	id                  TEXT PRIMARY KEY,
	sheet_id            TEXT NOT NULL REFERENCES sheets(id),
	extraction_accuracy REAL NOT NULL,
	data_completeness   REAL NOT NULL,
	format_consistency  REAL NOT NULL,
	issues              TEXT,
	created_at          DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS field_confidence (
	id             TEXT PRIMARY KEY,
	sheet_id       TEXT NOT NULL REFERENCES sheets(id),
	field_name     TEXT NOT NULL,
	employee_index INTEGER NOT NULL,
	confidence     REAL NOT NULL,
	is_uncertain   INTEGER NOT NULL DEFAULT 0,
	needs_review   INTEGER NOT NULL DEFAULT 0,
	updated_at     DATETIME NOT NULL DEFAULT (datetime('now')),
	UNIQUE(sheet_id, field_name, employee_index)
);

CREATE TABLE IF NOT EXISTS profiles (
	id         TEXT PRIMARY KEY,
	data       TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS templates (
	id         TEXT PRIMARY KEY,
	data       TEXT NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS edits (
	id              TEXT PRIMARY KEY,
	sheet_id        TEXT NOT NULL,
	user_id         TEXT NOT NULL DEFAULT '',
	session_id      TEXT NOT NULL DEFAULT '',
	field_name      TEXT NOT NULL,
	employee_index  INTEGER NOT NULL,
	old_value       TEXT NOT NULL DEFAULT '',
	new_value       TEXT NOT NULL DEFAULT '',
	correction_type TEXT NOT NULL DEFAULT '',
	created_at      DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_sheets_user_status ON sheets(user_id, status);
CREATE INDEX IF NOT EXISTS idx_assessments_sheet_id ON assessments(sheet_id);
CREATE INDEX IF NOT EXISTS idx_field_confidence_sheet_id ON field_confidence(sheet_id);
CREATE INDEX IF NOT EXISTS idx_edits_user_created ON edits(user_id, created_at);
CREATE INDEX IF NOT EXISTS idx_edits_field_name ON edits(field_name);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateSheet(ctx context.Context, userID, imagePath string) (*model.Sheet, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sheets (id, user_id, image_path, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		id, userID, imagePath, string(model.SheetStatusPending), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert sheet")
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

func (s *SQLiteStore) GetSheet(ctx context.Context, sheetID string) (*model.Sheet, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, image_path, status, needs_review, error_message, result, created_at, updated_at
		 FROM sheets WHERE id = ?`,
		sheetID,
	)
	return scanSheet(row)
}

func (s *SQLiteStore) UpdateSheetStatus(ctx context.Context, sheetID string, status model.SheetStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE sheets SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), time.Now().UTC(), sheetID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update sheet status %s", sheetID)
	}
	return checkRowsAffected(res, "sheet", sheetID)
}

func (s *SQLiteStore) CompleteSheet(ctx context.Context, sheetID string, result *model.ExtractionResult, needsReview bool) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal result")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE sheets SET status = ?, result = ?, needs_review = ?, error_message = '', updated_at = ? WHERE id = ?`,
		string(model.SheetStatusCompleted), string(resultJSON), boolToInt(needsReview), time.Now().UTC(), sheetID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete sheet %s", sheetID)
	}
	return checkRowsAffected(res, "sheet", sheetID)
}

func (s *SQLiteStore) FailSheet(ctx context.Context, sheetID, message string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE sheets SET status = ?, error_message = ?, updated_at = ? WHERE id = ?`,
		string(model.SheetStatusFailed), message, time.Now().UTC(), sheetID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: fail sheet %s", sheetID)
	}
	return checkRowsAffected(res, "sheet", sheetID)
}

func (s *SQLiteStore) ListSheets(ctx context.Context, filter SheetFilter) ([]model.Sheet, error) {
	query := `SELECT id, user_id, image_path, status, needs_review, error_message, result, created_at, updated_at
	          FROM sheets WHERE 1=1`
	var args []any

	if filter.UserID != "" {
		query += ` AND user_id = ?`
		args = append(args, filter.UserID)
	}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if !filter.Since.IsZero() {
		query += ` AND created_at >= ?`
		args = append(args, filter.Since.UTC())
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list sheets")
	}
	defer rows.Close()

	var sheets []model.Sheet
	for rows.Next() {
		sh, err := scanSheet(rows)
		if err != nil {
			return nil, err
		}
		sheets = append(sheets, *sh)
	}
	return sheets, eris.Wrap(rows.Err(), "sqlite: list sheets iterate")
}

func (s *SQLiteStore) SaveAssessment(ctx context.Context, a *model.SheetAssessment) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}

	issuesJSON, err := json.Marshal(a.Issues)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal issues")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO assessments (id, sheet_id, extraction_accuracy, data_completeness, format_consistency, issues, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.SheetID, a.ExtractionAccuracy, a.DataCompleteness, a.FormatConsistency, string(issuesJSON), a.CreatedAt,
	)
	return eris.Wrap(err, "sqlite: insert assessment")
}

func (s *SQLiteStore) AssessmentsSince(ctx context.Context, userID string, since time.Time) ([]model.SheetAssessment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT a.id, a.sheet_id, a.extraction_accuracy, a.data_completeness, a.format_consistency, a.issues, a.created_at
		 FROM assessments a JOIN sheets s ON s.id = a.sheet_id
		 WHERE s.user_id = ? AND a.created_at >= ?
		 ORDER BY a.created_at DESC`,
		userID, since.UTC(),
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list assessments")
	}
	defer rows.Close()

	var out []model.SheetAssessment
	for rows.Next() {
		var a model.SheetAssessment
		var issuesJSON sql.NullString
		if err := rows.Scan(&a.ID, &a.SheetID, &a.ExtractionAccuracy, &a.DataCompleteness, &a.FormatConsistency, &issuesJSON, &a.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan assessment")
		}
		if issuesJSON.Valid && issuesJSON.String != "" {
			if err := json.Unmarshal([]byte(issuesJSON.String), &a.Issues); err != nil {
				return nil, eris.Wrap(err, "sqlite: unmarshal issues")
			}
		}
		out = append(out, a)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list assessments iterate")
}

func (s *SQLiteStore) SaveFieldConfidence(ctx context.Context, records []model.FieldConfidence) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin field confidence tx")
	}
	defer tx.Rollback()

	for i := range records {
		rec := &records[i]
		if rec.ID == "" {
			rec.ID = uuid.New().String()
		}
		rec.UpdatedAt = time.Now().UTC()

		_, err := tx.ExecContext(ctx,
			`INSERT INTO field_confidence (id, sheet_id, field_name, employee_index, confidence, is_uncertain, needs_review, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT(sheet_id, field_name, employee_index) DO UPDATE SET
			   confidence = excluded.confidence,
			   is_uncertain = excluded.is_uncertain,
			   needs_review = excluded.needs_review,
			   updated_at = excluded.updated_at`,
			rec.ID, rec.SheetID, rec.FieldName, rec.EmployeeIndex,
			rec.Confidence, boolToInt(rec.IsUncertain), boolToInt(rec.NeedsReview), rec.UpdatedAt,
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: upsert field confidence %s/%s", rec.SheetID, rec.FieldName)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit field confidence")
}

func (s *SQLiteStore) GetFieldConfidence(ctx context.Context, sheetID, fieldName string, employeeIndex int) (*model.FieldConfidence, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, sheet_id, field_name, employee_index, confidence, is_uncertain, needs_review, updated_at
		 FROM field_confidence WHERE sheet_id = ? AND field_name = ? AND employee_index = ?`,
		sheetID, fieldName, employeeIndex,
	)

	var fc model.FieldConfidence
	var uncertain, review int
	err := row.Scan(&fc.ID, &fc.SheetID, &fc.FieldName, &fc.EmployeeIndex, &fc.Confidence, &uncertain, &review, &fc.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get field confidence")
	}
	fc.IsUncertain = uncertain != 0
	fc.NeedsReview = review != 0
	return &fc, nil
}

func (s *SQLiteStore) ListFieldConfidence(ctx context.Context, sheetID string) ([]model.FieldConfidence, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, sheet_id, field_name, employee_index, confidence, is_uncertain, needs_review, updated_at
		 FROM field_confidence WHERE sheet_id = ?
		 ORDER BY employee_index, field_name`,
		sheetID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list field confidence")
	}
	defer rows.Close()

	var out []model.FieldConfidence
	for rows.Next() {
		var fc model.FieldConfidence
		var uncertain, review int
		if err := rows.Scan(&fc.ID, &fc.SheetID, &fc.FieldName, &fc.EmployeeIndex, &fc.Confidence, &uncertain, &review, &fc.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan field confidence")
		}
		fc.IsUncertain = uncertain != 0
		fc.NeedsReview = review != 0
		out = append(out, fc)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list field confidence iterate")
}

func (s *SQLiteStore) UpdateFieldConfidence(ctx context.Context, rec *model.FieldConfidence) error {
	rec.UpdatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`UPDATE field_confidence SET confidence = ?, is_uncertain = ?, needs_review = ?, updated_at = ?
		 WHERE sheet_id = ? AND field_name = ? AND employee_index = ?`,
		rec.Confidence, boolToInt(rec.IsUncertain), boolToInt(rec.NeedsReview), rec.UpdatedAt,
		rec.SheetID, rec.FieldName, rec.EmployeeIndex,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update field confidence %s/%s", rec.SheetID, rec.FieldName)
	}
	return checkRowsAffected(res, "field confidence", rec.SheetID+"/"+rec.FieldName)
}

func (s *SQLiteStore) AverageFieldConfidence(ctx context.Context, userID string) (map[string]float64, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT fc.field_name, AVG(fc.confidence)
		 FROM field_confidence fc JOIN sheets s ON s.id = fc.sheet_id
		 WHERE s.user_id = ?
		 GROUP BY fc.field_name`,
		userID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: average field confidence")
	}
	defer rows.Close()

	out := map[string]float64{}
	for rows.Next() {
		var name string
		var avg float64
		if err := rows.Scan(&name, &avg); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan field average")
		}
		out[name] = avg
	}
	return out, eris.Wrap(rows.Err(), "sqlite: average field confidence iterate")
}

func (s *SQLiteStore) GetProfile(ctx context.Context, id string) (*model.CompanyProfile, error) {
	row := s.db.QueryRowContext(ctx, `SELECT data FROM profiles WHERE id = ?`, id)

	var data string
	err := row.Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get profile")
	}

	var p model.CompanyProfile
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal profile")
	}
	return &p, nil
}

func (s *SQLiteStore) SaveProfile(ctx context.Context, p *model.CompanyProfile) error {
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
		return eris.Wrap(err, "sqlite: marshal profile")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO profiles (id, data, created_at, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		p.ID, string(data), p.CreatedAt, p.UpdatedAt,
	)
	return eris.Wrap(err, "sqlite: save profile")
}

func (s *SQLiteStore) GetTemplate(ctx context.Context, id string) (*model.SheetTemplate, error) {
	row := s.db.QueryRowContext(ctx, `SELECT data FROM templates WHERE id = ?`, id)

	var data string
	err := row.Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get template")
	}

	var t model.SheetTemplate
	if err := json.Unmarshal([]byte(data), &t); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal template")
	}
	return &t, nil
}

func (s *SQLiteStore) SaveTemplate(ctx context.Context, t *model.SheetTemplate) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	t.UpdatedAt = time.Now().UTC()

	data, err := json.Marshal(t)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal template")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO templates (id, data, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		t.ID, string(data), t.UpdatedAt,
	)
	return eris.Wrap(err, "sqlite: save template")
}

func (s *SQLiteStore) ListTemplates(ctx context.Context) ([]model.SheetTemplate, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT data FROM templates ORDER BY updated_at DESC`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list templates")
	}
	defer rows.Close()

	var out []model.SheetTemplate
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan template")
		}
		var t model.SheetTemplate
		if err := json.Unmarshal([]byte(data), &t); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal template")
		}
		out = append(out, t)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list templates iterate")
}

func (s *SQLiteStore) RecordEdit(ctx context.Context, e *model.UserEdit) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO edits (id, sheet_id, user_id, session_id, field_name, employee_index, old_value, new_value, correction_type, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.SheetID, e.UserID, e.SessionID, e.FieldName, e.EmployeeIndex,
		e.OldValue, e.NewValue, e.CorrectionType, e.CreatedAt,
	)
	return eris.Wrap(err, "sqlite: insert edit")
}

func (s *SQLiteStore) EditsSince(ctx context.Context, userID string, since time.Time) ([]model.UserEdit, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, sheet_id, user_id, session_id, field_name, employee_index, old_value, new_value, correction_type, created_at
		 FROM edits WHERE user_id = ? AND created_at >= ?
		 ORDER BY created_at DESC`,
		userID, since.UTC(),
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list edits")
	}
	defer rows.Close()

	var out []model.UserEdit
	for rows.Next() {
		var e model.UserEdit
		if err := rows.Scan(&e.ID, &e.SheetID, &e.UserID, &e.SessionID, &e.FieldName, &e.EmployeeIndex,
			&e.OldValue, &e.NewValue, &e.CorrectionType, &e.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan edit")
		}
		out = append(out, e)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list edits iterate")
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanSheet(row scannable) (*model.Sheet, error) {
	var sh model.Sheet
	var needsReview int
	var resultJSON sql.NullString

	err := row.Scan(&sh.ID, &sh.UserID, &sh.ImagePath, &sh.Status, &needsReview, &sh.ErrorMessage, &resultJSON, &sh.CreatedAt, &sh.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, eris.New("sheet not found")
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan sheet")
	}

	sh.NeedsReview = needsReview != 0
	if resultJSON.Valid && resultJSON.String != "" {
		sh.Result = &model.ExtractionResult{}
		if err := json.Unmarshal([]byte(resultJSON.String), sh.Result); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal result")
		}
	}
	return &sh, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
