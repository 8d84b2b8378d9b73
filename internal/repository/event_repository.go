package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"occupancy-analytics/internal/model"
)

// eventRow mirrors presence_events. The table is written by the check-in
// system; seq keeps insertion order for rows sharing a timestamp.
type eventRow struct {
	ID         uuid.UUID
	SubjectID  uuid.UUID
	Kind       string
	LocationID *uuid.UUID
	OccurredAt time.Time
	Seq        int64
}

type roomRow struct {
	ID       uuid.UUID
	Name     string
	Category string
}

type subjectRow struct {
	ID   uuid.UUID
	Name string
	Role string
	Tier *string
}

type EventRepository struct {
	db *gorm.DB
}

func NewEventRepository(db *gorm.DB) *EventRepository {
	return &EventRepository{db: db}
}

// Events returns every event before until, oldest first. A zero since reads
// from the beginning of the log.
func (r *EventRepository) Events(ctx context.Context, since, until time.Time) ([]model.Event, error) {
	if !r.relationExists(ctx, "presence_events") {
		return nil, nil
	}

	query := r.db.WithContext(ctx).
		Table("presence_events pe").
		Select("pe.id, pe.subject_id, pe.kind, pe.location_id, pe.occurred_at, pe.seq").
		Where("pe.occurred_at < ?", until).
		Order("pe.occurred_at ASC, pe.seq ASC")
	if !since.IsZero() {
		query = query.Where("pe.occurred_at >= ?", since)
	}

	var rows []eventRow
	if err := query.Scan(&rows).Error; err != nil {
		return nil, err
	}

	events := make([]model.Event, 0, len(rows))
	for _, row := range rows {
		events = append(events, toEvent(row))
	}
	return events, nil
}

func (r *EventRepository) Rooms(ctx context.Context) ([]model.Room, error) {
	if !r.relationExists(ctx, "rooms") {
		return nil, nil
	}

	var rows []roomRow
	err := r.db.WithContext(ctx).
		Table("rooms r").
		Select("r.id, r.name, r.category").
		Order("r.name ASC, r.id ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	rooms := make([]model.Room, 0, len(rows))
	for _, row := range rows {
		rooms = append(rooms, model.Room{
			ID:       row.ID,
			Name:     row.Name,
			Category: model.ParseRoomCategory(row.Category),
		})
	}
	return rooms, nil
}

func (r *EventRepository) Subjects(ctx context.Context) ([]model.Subject, error) {
	if !r.relationExists(ctx, "subjects") {
		return nil, nil
	}

	var rows []subjectRow
	err := r.db.WithContext(ctx).
		Table("subjects s").
		Select("s.id, s.name, s.role, s.tier").
		Order("s.id ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	subjects := make([]model.Subject, 0, len(rows))
	for _, row := range rows {
		s := model.Subject{ID: row.ID, Name: row.Name, Role: row.Role}
		if row.Tier != nil {
			s.Tier = *row.Tier
		}
		subjects = append(subjects, s)
	}
	return subjects, nil
}

func toEvent(row eventRow) model.Event {
	return model.Event{
		ID:         row.ID,
		SubjectID:  row.SubjectID,
		Kind:       model.ParseEventKind(row.Kind),
		LocationID: row.LocationID,
		At:         row.OccurredAt.UTC(),
	}
}

func (r *EventRepository) relationExists(ctx context.Context, name string) bool {
	var exists bool
	err := r.db.WithContext(ctx).
		Raw(`SELECT EXISTS (
			SELECT 1
			FROM pg_catalog.pg_class c
			JOIN pg_catalog.pg_namespace n ON n.oid = c.relnamespace
			WHERE c.relname = ? AND c.relkind IN ('r','m','v') AND n.nspname = 'public'
		)`, name).
		Scan(&exists).Error
	if err != nil {
		return false
	}
	return exists
}
