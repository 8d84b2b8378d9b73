package analytics

import (
	"github.com/google/uuid"

	"occupancy-analytics/internal/model"
	"occupancy-analytics/internal/session"
)

// directory resolves ids against the room and subject lists of a request.
type directory struct {
	rooms     []model.Room
	roomIndex map[uuid.UUID]model.Room
	subjects  map[uuid.UUID]model.Subject
}

func newDirectory(rooms []model.Room, subjects []model.Subject) *directory {
	d := &directory{
		rooms:     append([]model.Room(nil), rooms...),
		roomIndex: make(map[uuid.UUID]model.Room, len(rooms)),
		subjects:  make(map[uuid.UUID]model.Subject, len(subjects)),
	}
	for i, r := range rooms {
		if r.Category == "" {
			r.Category = model.RoomCategorySpace
			d.rooms[i] = r
		}
		d.roomIndex[r.ID] = r
	}
	for _, s := range subjects {
		d.subjects[s.ID] = s
	}
	return d
}

func (d *directory) room(id uuid.UUID) model.Room {
	if r, ok := d.roomIndex[id]; ok {
		return r
	}
	return model.Room{ID: id, Category: model.RoomCategorySpace}
}

func (d *directory) subject(id uuid.UUID) model.Subject {
	if s, ok := d.subjects[id]; ok {
		return s
	}
	return model.Subject{ID: id}
}

func (d *directory) isProgram(id uuid.UUID) bool {
	return d.room(id).Category == model.RoomCategoryProgram
}

// roomOrder lists the known rooms in input order followed by any other
// location ids seen in the data, in id order.
func (d *directory) roomOrder(seen map[uuid.UUID]struct{}) []uuid.UUID {
	order := make([]uuid.UUID, 0, len(d.rooms)+len(seen))
	for _, r := range d.rooms {
		order = append(order, r.ID)
	}
	var extra []uuid.UUID
	for id := range seen {
		if _, ok := d.roomIndex[id]; !ok {
			extra = append(extra, id)
		}
	}
	session.SortIDs(extra)
	return append(order, extra...)
}

// subjectSessions is the per-subject unit of aggregation work.
type subjectSessions struct {
	subject  model.Subject
	sessions []model.Session
}

// selectSessions keeps the subjects for which keep returns true, in id order.
func (d *directory) selectSessions(res session.Result, keep func(model.Subject) bool) []subjectSessions {
	ids := res.SubjectIDs()
	out := make([]subjectSessions, 0, len(ids))
	for _, id := range ids {
		subject := d.subject(id)
		if keep != nil && !keep(subject) {
			continue
		}
		out = append(out, subjectSessions{subject: subject, sessions: res.Sessions[id]})
	}
	return out
}

func flatten(units []subjectSessions) []model.Session {
	var out []model.Session
	for _, u := range units {
		out = append(out, u.sessions...)
	}
	return out
}
