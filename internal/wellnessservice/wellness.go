// Package wellnessservice stores private mood and stress check-ins. Entries are only ever visible to their owner.
package wellnessservice

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/sushihentaime/threadline/internal/audit"
	"github.com/sushihentaime/threadline/internal/common"
	"github.com/sushihentaime/threadline/internal/rbac"
)

type Mood string

const (
	MoodExcellent Mood = "excellent"
	MoodGood      Mood = "good"
	MoodOkay      Mood = "okay"
	MoodLow       Mood = "low"
	MoodDifficult Mood = "difficult"
)

const (
	MinStress      = 1
	MaxStress      = 10
	MaxNotesLength = 2000
)

type Entry struct {
	ID          uuid.UUID `json:"id"`
	Mood        Mood      `json:"mood"`
	StressLevel int       `json:"stress_level"`
	Notes       string    `json:"notes,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type WellnessService struct {
	db    *sql.DB
	audit audit.Logger
}

func NewWellnessService(db *sql.DB, auditor audit.Logger) *WellnessService {
	return &WellnessService{db: db, audit: auditor}
}

func validateEntry(v *common.Validator, mood Mood, stress int, notes string) {
	v.Check(common.PermittedValue(mood, MoodExcellent, MoodGood, MoodOkay, MoodLow, MoodDifficult), "mood", "must be one of excellent, good, okay, low or difficult")
	v.Check(stress >= MinStress && stress <= MaxStress, "stress_level", "must be between 1 and 10")
	v.Check(v.CheckStringLength(notes, 0, MaxNotesLength), "notes", "must not be more than 2000 characters long")
}

// CreateEntry records a check-in for actor.
func (s *WellnessService) CreateEntry(ctx context.Context, actor *rbac.Identity, mood Mood, stress int, notes string) (*Entry, error) {
	if !actor.Can(rbac.WellnessCreate) {
		return nil, common.ErrForbidden
	}

	v := common.NewValidator()
	validateEntry(v, mood, stress, notes)
	if !v.Valid() {
		return nil, v.ValidationError()
	}

	query := `
		INSERT INTO wellness_entries (user_id, mood, stress_level, notes)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	e := &Entry{Mood: mood, StressLevel: stress, Notes: notes}
	dbNotes := sql.NullString{String: notes, Valid: notes != ""}

	err := s.db.QueryRowContext(ctx, query, actor.ID, mood, stress, dbNotes).Scan(&e.ID, &e.CreatedAt)
	if err != nil {
		if common.ForeignKeyError(err, "wellness_entries_user_id_fkey") {
			return nil, common.ErrRecordNotFound
		}
		return nil, err
	}

	// Notes stay out of the audit trail.
	s.audit.Record(ctx, audit.Event{
		Action:     audit.ActionCreate,
		Resource:   "wellness_entry",
		ResourceID: e.ID.String(),
		ActorID:    audit.ActorID(actor.ID),
	})

	return e, nil
}

// ListEntries returns a page of actor's own check-ins, newest first. No role can read another user's entries.
func (s *WellnessService) ListEntries(ctx context.Context, actor *rbac.Identity, f common.Filters) ([]*Entry, common.Metadata, error) {
	if !actor.Can(rbac.WellnessRead) {
		return nil, common.Metadata{}, common.ErrForbidden
	}

	v := common.NewValidator()
	common.ValidateFilters(v, f)
	if !v.Valid() {
		return nil, common.Metadata{}, v.ValidationError()
	}

	query := `
		SELECT count(*) OVER(), id, mood, stress_level, notes, created_at
		FROM wellness_entries
		WHERE user_id = $1
		ORDER BY created_at DESC, id
		LIMIT $2 OFFSET $3`

	rows, err := s.db.QueryContext(ctx, query, actor.ID, f.Limit, f.Offset())
	if err != nil {
		return nil, common.Metadata{}, err
	}
	defer rows.Close()

	totalRecords := 0
	entries := []*Entry{}

	for rows.Next() {
		var e Entry
		var notes sql.NullString

		if err := rows.Scan(&totalRecords, &e.ID, &e.Mood, &e.StressLevel, &notes, &e.CreatedAt); err != nil {
			return nil, common.Metadata{}, err
		}

		e.Notes = notes.String
		entries = append(entries, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, common.Metadata{}, err
	}

	return entries, common.CalculateMetadata(totalRecords, f.Page, f.Limit), nil
}
