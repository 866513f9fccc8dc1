package meeting

import (
	"sort"

	"github.com/ovaphlow/pitchfork/service-meeting/internal/codec"
	"github.com/ovaphlow/pitchfork/service-meeting/internal/meeting/entity"
	"github.com/ovaphlow/pitchfork/service-meeting/internal/table"
)

// State is a snapshot decoded into users by id and events by id. Rows that
// are neither (legacy group rows, duplicate ids, events without an id) are
// carried through unchanged. Encoding writes users, then events, then the
// carried rows, each in their original order.
type State struct {
	version  int64
	users    []*entity.User
	userIdx  map[string]*entity.User
	events   []*entity.Event
	eventIdx map[string]*entity.Event
	others   []table.Row
}

// Load decodes a snapshot. The snapshot is not retained.
func Load(snap *table.Snapshot) *State {
	s := &State{
		version:  snap.Version,
		userIdx:  map[string]*entity.User{},
		eventIdx: map[string]*entity.Event{},
	}
	for _, r := range snap.Rows {
		r = r.Clone()
		switch r.Type() {
		case table.RowTypeUser:
			id := r.Get(table.ColUserID)
			if id == "" || s.userIdx[id] != nil {
				s.others = append(s.others, r)
				continue
			}
			s.addUser(entity.UserFromRow(r))
		case table.RowTypeEvent:
			id := r.Get(table.ColActivityID)
			if id == "" || s.eventIdx[id] != nil {
				s.others = append(s.others, r)
				continue
			}
			s.addEvent(entity.EventFromRow(r))
		default:
			s.others = append(s.others, r)
		}
	}
	return s
}

// Snapshot encodes the state for writing.
func (s *State) Snapshot() *table.Snapshot {
	rows := make([]table.Row, 0, len(s.users)+len(s.events)+len(s.others))
	for _, u := range s.users {
		rows = append(rows, u.Row())
	}
	for _, e := range s.events {
		rows = append(rows, e.Row())
	}
	for _, r := range s.others {
		rows = append(rows, r.Clone())
	}
	return &table.Snapshot{Rows: table.Normalize(rows), Version: s.version}
}

func (s *State) addUser(u *entity.User) {
	s.users = append(s.users, u)
	s.userIdx[u.ID] = u
}

func (s *State) addEvent(e *entity.Event) {
	s.events = append(s.events, e)
	s.eventIdx[e.ActivityID] = e
}

// User looks up a user by id.
func (s *State) User(id string) (*entity.User, bool) {
	u, ok := s.userIdx[id]
	return u, ok
}

// Users returns the users in table order.
func (s *State) Users() []*entity.User { return s.users }

// Event looks up an event by activity id.
func (s *State) Event(id string) (*entity.Event, bool) {
	e, ok := s.eventIdx[id]
	return e, ok
}

// Events returns the events in table order.
func (s *State) Events() []*entity.Event { return s.events }

// removeEvents drops every event matching pred and returns them.
func (s *State) removeEvents(pred func(*entity.Event) bool) []*entity.Event {
	var removed []*entity.Event
	kept := s.events[:0]
	for _, e := range s.events {
		if pred(e) {
			removed = append(removed, e)
			delete(s.eventIdx, e.ActivityID)
			continue
		}
		kept = append(kept, e)
	}
	s.events = kept
	return removed
}

// removeOthers drops carried rows matching pred and returns how many.
func (s *State) removeOthers(pred func(table.Row) bool) int {
	n := 0
	kept := s.others[:0]
	for _, r := range s.others {
		if pred(r) {
			n++
			continue
		}
		kept = append(kept, r)
	}
	s.others = kept
	return n
}

// carriedEvents decodes the carried event rows, those without an id or
// repeating one. They are listed but never edited through the index.
func (s *State) carriedEvents() []*entity.Event {
	var out []*entity.Event
	for _, r := range s.others {
		if r.Type() == table.RowTypeEvent {
			out = append(out, entity.EventFromRow(r))
		}
	}
	return out
}

// GroupExists reports whether any user row records group g.
func (s *State) GroupExists(g string) bool {
	for _, u := range s.users {
		if _, ok := u.GroupMembers[g]; ok || u.Groups.Has(g) {
			return true
		}
	}
	return false
}

// GroupMembers returns the union of every user's group_members[g] together
// with users listing g in their own groups.
func (s *State) GroupMembers(g string) codec.Set {
	members := codec.Set{}
	for _, u := range s.users {
		for m := range u.GroupMembers[g] {
			members.Add(m)
		}
		if u.Groups.Has(g) {
			members.Add(u.ID)
		}
	}
	return members
}

// IsMember reports whether user belongs to group g as seen from any row.
func (s *State) IsMember(user, g string) bool {
	if u, ok := s.userIdx[user]; ok && u.InGroup(g) {
		return true
	}
	for _, u := range s.users {
		if u.GroupMembers[g].Has(user) {
			return true
		}
	}
	return false
}

// befriend makes a and b mutual friends and clears pending requests in both
// directions.
func befriend(a, b *entity.User) {
	a.Friends.Add(b.ID)
	b.Friends.Add(a.ID)
	a.FriendRequests.Remove(b.ID)
	b.FriendRequests.Remove(a.ID)
}

func sortedEvents(events []*entity.Event) []*entity.Event {
	out := append([]*entity.Event(nil), events...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		if out[i].Title != out[j].Title {
			return out[i].Title < out[j].Title
		}
		return out[i].ActivityID < out[j].ActivityID
	})
	return out
}
