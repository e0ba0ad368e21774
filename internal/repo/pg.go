// internal/repo/pg.go
package repo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"worktrack/internal/models"
)

// pgStore is the Postgres-backed Store. See scripts/schema.sql for the tables.
type pgStore struct{ pool *pgxpool.Pool }

func NewPG(pool *pgxpool.Pool) Store { return &pgStore{pool: pool} }

const workItemCols = `id, kind, title, description, status, classification, type,
	assigned_person_id, asset_id, start_at, stop_at, duration_minutes,
	defect, cause, solution, created_at, updated_at`

func scanWorkItem(row pgx.Row) (models.WorkItem, error) {
	var (
		wi             models.WorkItem
		id             pgtype.UUID
		classification pgtype.Text
		person, asset  pgtype.UUID
		startAt        pgtype.Timestamptz
		stopAt         pgtype.Timestamptz
		duration       pgtype.Int4
		createdAt      pgtype.Timestamptz
		updatedAt      pgtype.Timestamptz
	)
	err := row.Scan(&id, &wi.Kind, &wi.Title, &wi.Description, &wi.Status,
		&classification, &wi.Type, &person, &asset, &startAt, &stopAt, &duration,
		&wi.Defect, &wi.Cause, &wi.Solution, &createdAt, &updatedAt)
	if err != nil {
		return models.WorkItem{}, err
	}
	wi.ID = toUUID(id)
	wi.Classification = toClassification(classification)
	wi.AssignedPerson = toUUIDPtr(person)
	wi.AssetID = toUUIDPtr(asset)
	wi.StartAt = toTimePtr(startAt)
	wi.StopAt = toTimePtr(stopAt)
	wi.DurationMinutes = toIntPtr(duration)
	wi.CreatedAt = createdAt.Time.UTC()
	wi.UpdatedAt = updatedAt.Time.UTC()
	return wi, nil
}

func (s *pgStore) GetWorkItem(ctx context.Context, id uuid.UUID) (models.WorkItem, error) {
	slog.DebugContext(ctx, "GetWorkItem", "id", id.String())
	row := s.pool.QueryRow(ctx,
		`SELECT `+workItemCols+` FROM work_items WHERE id = $1`, fromUUID(id))
	wi, err := scanWorkItem(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.WorkItem{}, models.ErrWorkItemNotFound
	}
	return wi, err
}

func (s *pgStore) ListWorkItems(ctx context.Context, f WorkItemFilter) ([]models.WorkItem, error) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if len(f.Kinds) > 0 {
		kinds := make([]string, len(f.Kinds))
		for i, k := range f.Kinds {
			kinds[i] = string(k)
		}
		where = append(where, "kind = ANY("+arg(kinds)+")")
	}
	if len(f.PersonIDs) > 0 {
		ids := make([]string, len(f.PersonIDs))
		for i, id := range f.PersonIDs {
			ids[i] = id.String()
		}
		where = append(where, "assigned_person_id::text = ANY("+arg(ids)+")")
	}
	if len(f.AssetIDs) > 0 {
		ids := make([]string, len(f.AssetIDs))
		for i, id := range f.AssetIDs {
			ids[i] = id.String()
		}
		where = append(where, "asset_id::text = ANY("+arg(ids)+")")
	}
	if f.To != nil {
		where = append(where, "COALESCE(start_at, created_at) < "+arg(*f.To))
	}
	if f.From != nil {
		where = append(where, "(stop_at IS NULL OR stop_at >= "+arg(*f.From)+")")
	}
	q := `SELECT ` + workItemCols + ` FROM work_items`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY created_at"

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		slog.ErrorContext(ctx, "ListWorkItems failed", "err", err)
		return nil, err
	}
	defer rows.Close()
	var out []models.WorkItem
	for rows.Next() {
		wi, err := scanWorkItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, wi)
	}
	return out, rows.Err()
}

const eventCols = `id, owner_id, seq, created_at_utc, actor_id, kind, field,
	old_value, new_value, message, correlation_id, from_status, to_status`

func (s *pgStore) ListEvents(ctx context.Context, ownerID uuid.UUID) ([]models.Event, error) {
	slog.DebugContext(ctx, "ListEvents", "owner_id", ownerID.String())
	rows, err := s.pool.Query(ctx,
		`SELECT `+eventCols+` FROM events WHERE owner_id = $1 ORDER BY created_at_utc, seq`,
		fromUUID(ownerID))
	if err != nil {
		slog.ErrorContext(ctx, "ListEvents failed", "err", err)
		return nil, err
	}
	defer rows.Close()
	var out []models.Event
	for rows.Next() {
		var (
			ev                models.Event
			id, owner, corr   pgtype.UUID
			createdAt         pgtype.Timestamptz
			actor             pgtype.Text
			field, oldV, newV pgtype.Text
			message           pgtype.Text
			fromStat, toStat  pgtype.Text
		)
		if err := rows.Scan(&id, &owner, &ev.Seq, &createdAt, &actor, &ev.Kind,
			&field, &oldV, &newV, &message, &corr, &fromStat, &toStat); err != nil {
			return nil, err
		}
		ev.ID = toUUID(id)
		ev.OwnerID = toUUID(owner)
		ev.CreatedAtUtc = createdAt.Time.UTC()
		ev.ActorID = fromText(actor)
		ev.Field = fromText(field)
		ev.OldValue = fromText(oldV)
		ev.NewValue = fromText(newV)
		ev.Message = fromText(message)
		ev.CorrelationID = toUUID(corr)
		ev.FromStatus = toStatusOpt(fromStat)
		ev.ToStatus = toStatusOpt(toStat)
		out = append(out, ev)
	}
	return out, rows.Err()
}

func (s *pgStore) ListLaborEntries(ctx context.Context, ownerID uuid.UUID) ([]models.LaborLogEntry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, owner_id, person_id, minutes, created_at
		 FROM labor_log_entries WHERE owner_id = $1 ORDER BY created_at`,
		fromUUID(ownerID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.LaborLogEntry
	for rows.Next() {
		var (
			e                 models.LaborLogEntry
			id, owner, person pgtype.UUID
			createdAt         pgtype.Timestamptz
		)
		if err := rows.Scan(&id, &owner, &person, &e.Minutes, &createdAt); err != nil {
			return nil, err
		}
		e.ID = toUUID(id)
		e.OwnerID = toUUID(owner)
		e.PersonID = toUUID(person)
		e.CreatedAt = createdAt.Time.UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *pgStore) GetAsset(ctx context.Context, id uuid.UUID) (models.Asset, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, name, status, timezone, created_at FROM assets WHERE id = $1`, fromUUID(id))
	return scanAsset(row)
}

func scanAsset(row pgx.Row) (models.Asset, error) {
	var (
		a         models.Asset
		id        pgtype.UUID
		tz        pgtype.Text
		createdAt pgtype.Timestamptz
	)
	err := row.Scan(&id, &a.Name, &a.Status, &tz, &createdAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Asset{}, models.ErrAssetNotFound
	}
	if err != nil {
		return models.Asset{}, err
	}
	a.ID = toUUID(id)
	a.Timezone = fromText(tz)
	a.CreatedAt = createdAt.Time.UTC()
	return a, nil
}

func (s *pgStore) GetPerson(ctx context.Context, id uuid.UUID) (models.Person, error) {
	var (
		p         models.Person
		pid       pgtype.UUID
		tz        pgtype.Text
		createdAt pgtype.Timestamptz
	)
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, timezone, created_at FROM people WHERE id = $1`, fromUUID(id)).
		Scan(&pid, &p.Name, &tz, &createdAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Person{}, models.ErrPersonNotFound
	}
	if err != nil {
		return models.Person{}, err
	}
	p.ID = toUUID(pid)
	p.Timezone = fromText(tz)
	p.CreatedAt = createdAt.Time.UTC()
	return p, nil
}

// Tx runs fn in a serializable transaction so the read-then-write checks inside
// lifecycle operations cannot interleave.
func (s *pgStore) Tx(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)
	if err := fn(&pgTx{tx: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

type pgTx struct{ tx pgx.Tx }

func (t *pgTx) InsertWorkItem(ctx context.Context, wi models.WorkItem) error {
	_, err := t.tx.Exec(ctx,
		`INSERT INTO work_items (`+workItemCols+`)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)`,
		fromUUID(wi.ID), string(wi.Kind), wi.Title, wi.Description, string(wi.Status),
		fromClassification(wi.Classification), string(wi.Type),
		fromUUIDPtr(wi.AssignedPerson), fromUUIDPtr(wi.AssetID),
		fromTimePtr(wi.StartAt), fromTimePtr(wi.StopAt), fromIntPtr(wi.DurationMinutes),
		wi.Defect, wi.Cause, wi.Solution, wi.CreatedAt, wi.UpdatedAt)
	return err
}

func (t *pgTx) GetWorkItemForUpdate(ctx context.Context, id uuid.UUID) (models.WorkItem, error) {
	row := t.tx.QueryRow(ctx,
		`SELECT `+workItemCols+` FROM work_items WHERE id = $1 FOR UPDATE`, fromUUID(id))
	wi, err := scanWorkItem(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.WorkItem{}, models.ErrWorkItemNotFound
	}
	return wi, err
}

func (t *pgTx) UpdateWorkItem(ctx context.Context, wi models.WorkItem) error {
	tag, err := t.tx.Exec(ctx,
		`UPDATE work_items SET
			title = $2, description = $3, status = $4, classification = $5, type = $6,
			assigned_person_id = $7, asset_id = $8, start_at = $9, stop_at = $10,
			duration_minutes = $11, defect = $12, cause = $13, solution = $14,
			updated_at = $15
		 WHERE id = $1`,
		fromUUID(wi.ID), wi.Title, wi.Description, string(wi.Status),
		fromClassification(wi.Classification), string(wi.Type),
		fromUUIDPtr(wi.AssignedPerson), fromUUIDPtr(wi.AssetID),
		fromTimePtr(wi.StartAt), fromTimePtr(wi.StopAt), fromIntPtr(wi.DurationMinutes),
		wi.Defect, wi.Cause, wi.Solution, wi.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return models.ErrWorkItemNotFound
	}
	return nil
}

func (t *pgTx) AppendEvents(ctx context.Context, events []models.Event) error {
	for _, ev := range events {
		_, err := t.tx.Exec(ctx,
			`INSERT INTO events (id, owner_id, created_at_utc, actor_id, kind, field,
				old_value, new_value, message, correlation_id, from_status, to_status)
			 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
			fromUUID(ev.ID), fromUUID(ev.OwnerID), ev.CreatedAtUtc,
			toNullableText(ev.ActorID), string(ev.Kind), toNullableText(ev.Field),
			toNullableText(ev.OldValue), toNullableText(ev.NewValue),
			toNullableText(ev.Message), fromUUID(ev.CorrelationID),
			fromStatusOpt(ev.FromStatus), fromStatusOpt(ev.ToStatus))
		if err != nil {
			return err
		}
	}
	return nil
}

func (t *pgTx) FindInProgressForPerson(ctx context.Context, personID uuid.UUID, kind models.Kind, exclude uuid.UUID) (*models.WorkItem, error) {
	row := t.tx.QueryRow(ctx,
		`SELECT `+workItemCols+` FROM work_items
		 WHERE assigned_person_id = $1 AND kind = $2 AND status = $3 AND id <> $4
		 LIMIT 1`,
		fromUUID(personID), string(kind), string(models.StatusInProgress), fromUUID(exclude))
	wi, err := scanWorkItem(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &wi, nil
}

func (t *pgTx) HasOtherInProgressForAsset(ctx context.Context, assetID uuid.UUID, exclude uuid.UUID) (bool, error) {
	var exists bool
	err := t.tx.QueryRow(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM work_items
			WHERE asset_id = $1 AND kind = $2 AND status = $3 AND id <> $4
		 )`,
		fromUUID(assetID), string(models.KindWorkOrder),
		string(models.StatusInProgress), fromUUID(exclude)).Scan(&exists)
	return exists, err
}

func (t *pgTx) GetAssetForUpdate(ctx context.Context, id uuid.UUID) (models.Asset, error) {
	row := t.tx.QueryRow(ctx,
		`SELECT id, name, status, timezone, created_at FROM assets WHERE id = $1 FOR UPDATE`,
		fromUUID(id))
	return scanAsset(row)
}

func (t *pgTx) SetAssetStatus(ctx context.Context, id uuid.UUID, status models.AssetStatus) error {
	tag, err := t.tx.Exec(ctx,
		`UPDATE assets SET status = $2 WHERE id = $1`, fromUUID(id), string(status))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return models.ErrAssetNotFound
	}
	return nil
}
