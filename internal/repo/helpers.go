// internal/repo/helpers.go
package repo

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"worktrack/internal/models"
)

// Common pg/uuid helpers
func fromUUID(id uuid.UUID) pgtype.UUID { return pgtype.UUID{Bytes: id, Valid: true} }
func toUUID(u pgtype.UUID) uuid.UUID    { return uuid.UUID(u.Bytes) }

func fromUUIDPtr(p *uuid.UUID) pgtype.UUID {
	if p == nil {
		return pgtype.UUID{}
	}
	return pgtype.UUID{Bytes: *p, Valid: true}
}

func toUUIDPtr(u pgtype.UUID) *uuid.UUID {
	if !u.Valid {
		return nil
	}
	id := uuid.UUID(u.Bytes)
	return &id
}

// Text conversions
func toText(s string) pgtype.Text   { return pgtype.Text{String: s, Valid: true} }
func fromText(t pgtype.Text) string { return t.String }

func toNullableText(s string) pgtype.Text {
	if s == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: s, Valid: true}
}

// Timestamp conversions
func fromTimePtr(p *time.Time) pgtype.Timestamptz {
	if p == nil {
		return pgtype.Timestamptz{}
	}
	return pgtype.Timestamptz{Time: *p, Valid: true}
}

func toTimePtr(t pgtype.Timestamptz) *time.Time {
	if !t.Valid {
		return nil
	}
	ts := t.Time.UTC()
	return &ts
}

// Ints
func fromIntPtr(p *int) pgtype.Int4 {
	if p == nil {
		return pgtype.Int4{}
	}
	return pgtype.Int4{Int32: int32(*p), Valid: true}
}

func toIntPtr(i pgtype.Int4) *int {
	if !i.Valid {
		return nil
	}
	v := int(i.Int32)
	return &v
}

// Enum-ish text columns that are nullable in the schema
func fromClassification(c *models.Classification) pgtype.Text {
	if c == nil {
		return pgtype.Text{}
	}
	return pgtype.Text{String: string(*c), Valid: true}
}

func toClassification(t pgtype.Text) *models.Classification {
	if !t.Valid || t.String == "" {
		return nil
	}
	c := models.Classification(t.String)
	return &c
}

func fromStatusOpt(s models.Status) pgtype.Text {
	if s == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: string(s), Valid: true}
}

func toStatusOpt(t pgtype.Text) models.Status {
	if !t.Valid {
		return ""
	}
	return models.Status(t.String)
}
