package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const sqliteTimeLayout = time.RFC3339Nano

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(db *sql.DB) (*SQLiteRepository, error) {
	if db == nil {
		return nil, errors.New("storage: nil db")
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	return &SQLiteRepository{db: db}, nil
}

func OpenSQLite(path string) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	repo, err := NewSQLiteRepository(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

const eventColumns = `id, name, description, start_at, end_at, session_length_ns, hours_needed_ns, start_working_days, completed, series_id, parent_id`

func (r *SQLiteRepository) CreateEvent(ctx context.Context, in EventRecord) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO events (`+eventColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		in.ID, in.Name, in.Description, nullTime(in.StartAt), mustTime(in.EndAt),
		int64(in.SessionLength), int64(in.HoursNeeded), in.StartWorkingDays,
		boolInt(in.Completed), in.SeriesID, nullString(in.ParentID),
	)
	return err
}

func (r *SQLiteRepository) GetEvent(ctx context.Context, id string) (EventRecord, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+eventColumns+` FROM events WHERE id = ?`, id)
	ev, err := scanEvent(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return EventRecord{}, ErrNotFound
		}
		return EventRecord{}, err
	}
	return ev, nil
}

func (r *SQLiteRepository) UpdateEvent(ctx context.Context, in EventRecord) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE events
		SET name = ?, description = ?, start_at = ?, end_at = ?, session_length_ns = ?,
		    hours_needed_ns = ?, start_working_days = ?, completed = ?, series_id = ?, parent_id = ?
		WHERE id = ?`,
		in.Name, in.Description, nullTime(in.StartAt), mustTime(in.EndAt),
		int64(in.SessionLength), int64(in.HoursNeeded), in.StartWorkingDays,
		boolInt(in.Completed), in.SeriesID, nullString(in.ParentID), in.ID,
	)
	if err != nil {
		return err
	}
	return checkRowsAffected(res)
}

func (r *SQLiteRepository) DeleteEvent(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM events WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return checkRowsAffected(res)
}

func (r *SQLiteRepository) ListEvents(ctx context.Context, filter EventListFilter) ([]EventRecord, error) {
	query := `SELECT ` + eventColumns + ` FROM events`
	clauses := make([]string, 0, 2)
	args := make([]any, 0, 4)
	if filter.SeriesID != "" {
		clauses = append(clauses, "series_id = ?")
		args = append(args, filter.SeriesID)
	}
	if filter.ParentID != "" {
		clauses = append(clauses, "parent_id = ?")
		args = append(args, filter.ParentID)
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += ` ORDER BY end_at ASC, id ASC`
	query += applyPagination(&args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]EventRecord, 0)
	for rows.Next() {
		ev, scanErr := scanEvent(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) CreateSeries(ctx context.Context, in SeriesRecord, templates []TemplateRecord) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO series (id, cycle_length, stop_kind, stop_count, stop_from, stop_to)
		VALUES (?, ?, ?, ?, ?, ?)`,
		in.ID, in.CycleLength, in.StopKind, in.StopCount, nullTime(in.StopFrom), nullTime(in.StopTo),
	); err != nil {
		return err
	}
	for _, tmpl := range templates {
		if err := insertTemplate(ctx, tx, tmpl); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (r *SQLiteRepository) GetSeries(ctx context.Context, id string) (SeriesRecord, []TemplateRecord, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, cycle_length, stop_kind, stop_count, stop_from, stop_to
		FROM series WHERE id = ?`, id)
	rec, err := scanSeries(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return SeriesRecord{}, nil, ErrNotFound
		}
		return SeriesRecord{}, nil, err
	}
	templates, err := r.listTemplates(ctx, id)
	if err != nil {
		return SeriesRecord{}, nil, err
	}
	return rec, templates, nil
}

func (r *SQLiteRepository) DeleteSeries(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM series WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return checkRowsAffected(res)
}

func (r *SQLiteRepository) ListSeries(ctx context.Context, filter SeriesListFilter) ([]SeriesRecord, error) {
	query := `SELECT id, cycle_length, stop_kind, stop_count, stop_from, stop_to FROM series ORDER BY id ASC`
	args := make([]any, 0, 2)
	query += applyPagination(&args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]SeriesRecord, 0)
	for rows.Next() {
		rec, scanErr := scanSeries(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) listTemplates(ctx context.Context, seriesID string) ([]TemplateRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT series_id, position, id, name, description, start_at, end_at
		FROM series_templates WHERE series_id = ? ORDER BY position ASC`, seriesID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]TemplateRecord, 0)
	for rows.Next() {
		tmpl, scanErr := scanTemplate(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		out = append(out, tmpl)
	}
	return out, rows.Err()
}

// ReplaceSnapshot rewrites the whole database in one transaction. Parent
// events are inserted before their work-session children so the foreign key
// holds.
func (r *SQLiteRepository) ReplaceSnapshot(ctx context.Context, snap Snapshot) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, table := range []string{"series_templates", "series", "events"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	insert := func(in EventRecord) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO events (`+eventColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			in.ID, in.Name, in.Description, nullTime(in.StartAt), mustTime(in.EndAt),
			int64(in.SessionLength), int64(in.HoursNeeded), in.StartWorkingDays,
			boolInt(in.Completed), in.SeriesID, nullString(in.ParentID),
		)
		return err
	}
	for _, ev := range snap.Events {
		if ev.ParentID != nil {
			continue
		}
		if err := insert(ev); err != nil {
			return fmt.Errorf("insert event %s: %w", ev.ID, err)
		}
	}
	for _, ev := range snap.Events {
		if ev.ParentID == nil {
			continue
		}
		if err := insert(ev); err != nil {
			return fmt.Errorf("insert session %s: %w", ev.ID, err)
		}
	}

	for _, rec := range snap.Series {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO series (id, cycle_length, stop_kind, stop_count, stop_from, stop_to)
			VALUES (?, ?, ?, ?, ?, ?)`,
			rec.ID, rec.CycleLength, rec.StopKind, rec.StopCount, nullTime(rec.StopFrom), nullTime(rec.StopTo),
		); err != nil {
			return fmt.Errorf("insert series %s: %w", rec.ID, err)
		}
	}
	for _, tmpl := range snap.Templates {
		if err := insertTemplate(ctx, tx, tmpl); err != nil {
			return fmt.Errorf("insert template %s/%d: %w", tmpl.SeriesID, tmpl.Position, err)
		}
	}
	for _, inst := range snap.Instances {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO series_instances (series_id, cycle_at, position, id, name, description, start_at, end_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			inst.SeriesID, mustTime(inst.CycleAt), inst.Position, inst.ID, inst.Name,
			inst.Description, nullTime(inst.StartAt), mustTime(inst.EndAt),
		); err != nil {
			return fmt.Errorf("insert instance %s/%s: %w", inst.SeriesID, inst.ID, err)
		}
	}
	return tx.Commit()
}

func (r *SQLiteRepository) LoadSnapshot(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	events, err := r.ListEvents(ctx, EventListFilter{})
	if err != nil {
		return Snapshot{}, err
	}
	snap.Events = events

	series, err := r.ListSeries(ctx, SeriesListFilter{})
	if err != nil {
		return Snapshot{}, err
	}
	snap.Series = series
	for _, rec := range series {
		templates, err := r.listTemplates(ctx, rec.ID)
		if err != nil {
			return Snapshot{}, err
		}
		snap.Templates = append(snap.Templates, templates...)

		instances, err := r.listInstances(ctx, rec.ID)
		if err != nil {
			return Snapshot{}, err
		}
		snap.Instances = append(snap.Instances, instances...)
	}
	return snap, nil
}

func (r *SQLiteRepository) listInstances(ctx context.Context, seriesID string) ([]InstanceRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT series_id, cycle_at, position, id, name, description, start_at, end_at
		FROM series_instances WHERE series_id = ? ORDER BY cycle_at ASC, position ASC`, seriesID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]InstanceRecord, 0)
	for rows.Next() {
		inst, scanErr := scanInstance(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		out = append(out, inst)
	}
	return out, rows.Err()
}

func insertTemplate(ctx context.Context, tx *sql.Tx, tmpl TemplateRecord) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO series_templates (series_id, position, id, name, description, start_at, end_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		tmpl.SeriesID, tmpl.Position, tmpl.ID, tmpl.Name, tmpl.Description,
		nullTime(tmpl.StartAt), mustTime(tmpl.EndAt),
	)
	return err
}

func nullTime(v *time.Time) any {
	if v == nil {
		return nil
	}
	return v.UTC().Format(sqliteTimeLayout)
}

func mustTime(v time.Time) string {
	return v.UTC().Format(sqliteTimeLayout)
}

func nullString(v *string) any {
	if v == nil {
		return nil
	}
	return *v
}

func parseNullableTime(v sql.NullString) (*time.Time, error) {
	if !v.Valid || v.String == "" {
		return nil, nil
	}
	tm, err := time.Parse(sqliteTimeLayout, v.String)
	if err != nil {
		return nil, err
	}
	return &tm, nil
}

func parseRequiredTime(v string) (time.Time, error) {
	return time.Parse(sqliteTimeLayout, v)
}

func boolInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

func applyPagination(args *[]any, limit, offset int) string {
	sql := ""
	if limit > 0 {
		sql += " LIMIT ?"
		*args = append(*args, limit)
	}
	if offset > 0 {
		sql += " OFFSET ?"
		*args = append(*args, offset)
	}
	return sql
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEvent(s scanner) (EventRecord, error) {
	var out EventRecord
	var start sql.NullString
	var end string
	var sessionLength, hoursNeeded int64
	var completed int
	var parent sql.NullString
	if err := s.Scan(&out.ID, &out.Name, &out.Description, &start, &end,
		&sessionLength, &hoursNeeded, &out.StartWorkingDays, &completed,
		&out.SeriesID, &parent); err != nil {
		return EventRecord{}, err
	}
	startAt, err := parseNullableTime(start)
	if err != nil {
		return EventRecord{}, err
	}
	endAt, err := parseRequiredTime(end)
	if err != nil {
		return EventRecord{}, err
	}
	out.StartAt = startAt
	out.EndAt = endAt
	out.SessionLength = time.Duration(sessionLength)
	out.HoursNeeded = time.Duration(hoursNeeded)
	out.Completed = completed == 1
	if parent.Valid {
		p := parent.String
		out.ParentID = &p
	}
	return out, nil
}

func scanSeries(s scanner) (SeriesRecord, error) {
	var out SeriesRecord
	var from, to sql.NullString
	if err := s.Scan(&out.ID, &out.CycleLength, &out.StopKind, &out.StopCount, &from, &to); err != nil {
		return SeriesRecord{}, err
	}
	stopFrom, err := parseNullableTime(from)
	if err != nil {
		return SeriesRecord{}, err
	}
	stopTo, err := parseNullableTime(to)
	if err != nil {
		return SeriesRecord{}, err
	}
	out.StopFrom = stopFrom
	out.StopTo = stopTo
	return out, nil
}

func scanInstance(s scanner) (InstanceRecord, error) {
	var out InstanceRecord
	var cycle, end string
	var start sql.NullString
	if err := s.Scan(&out.SeriesID, &cycle, &out.Position, &out.ID, &out.Name, &out.Description, &start, &end); err != nil {
		return InstanceRecord{}, err
	}
	cycleAt, err := parseRequiredTime(cycle)
	if err != nil {
		return InstanceRecord{}, err
	}
	startAt, err := parseNullableTime(start)
	if err != nil {
		return InstanceRecord{}, err
	}
	endAt, err := parseRequiredTime(end)
	if err != nil {
		return InstanceRecord{}, err
	}
	out.CycleAt = cycleAt
	out.StartAt = startAt
	out.EndAt = endAt
	return out, nil
}

func scanTemplate(s scanner) (TemplateRecord, error) {
	var out TemplateRecord
	var start sql.NullString
	var end string
	if err := s.Scan(&out.SeriesID, &out.Position, &out.ID, &out.Name, &out.Description, &start, &end); err != nil {
		return TemplateRecord{}, err
	}
	startAt, err := parseNullableTime(start)
	if err != nil {
		return TemplateRecord{}, err
	}
	endAt, err := parseRequiredTime(end)
	if err != nil {
		return TemplateRecord{}, err
	}
	out.StartAt = startAt
	out.EndAt = endAt
	return out, nil
}

func checkRowsAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
