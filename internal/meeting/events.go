package meeting

import (
	"context"
	"errors"
	"strings"

	"github.com/ovaphlow/pitchfork/service-meeting/internal/meeting/entity"
	"github.com/ovaphlow/pitchfork/service-meeting/internal/table"
	"github.com/ovaphlow/pitchfork/service-meeting/internal/throttle"
)

// RosterEntry is one answered participant of an event.
type RosterEntry struct {
	User   string `json:"user"`
	Status string `json:"status"`
}

// AddEvent creates an event in group with a fresh activity id and no
// participants.
func (s *Service) AddEvent(ctx context.Context, group, title, date, creator, summary string) (*entity.Event, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, validationf("event title is required")
	}
	if !validDate(date) {
		return nil, validationf("invalid event date %q, expected YYYY-MM-DD", date)
	}
	if date < s.today() {
		return nil, validationf("event date %s is in the past", date)
	}
	st, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	if _, ok := st.User(creator); !ok {
		return nil, notFoundf("user %s does not exist", creator)
	}
	if !st.IsMember(creator, group) {
		return nil, forbiddenf("only members of %s can add events", group)
	}
	ev := entity.EventFromRow(nil)
	ev.ActivityID = s.newID()
	ev.GroupName = group
	ev.Title = title
	ev.Date = date
	ev.CreatedBy = creator
	ev.Summary = summary
	st.addEvent(ev)
	if err := s.commit(ctx, st, "add_event"); err != nil {
		return nil, err
	}
	s.logger.Infow("event created", "activity_id", ev.ActivityID, "group", group, "date", date)
	return ev, nil
}

// GetEvent returns one event.
func (s *Service) GetEvent(ctx context.Context, activityID string) (*entity.Event, error) {
	st, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	ev, ok := st.Event(activityID)
	if !ok {
		return nil, notFoundf("event %s does not exist", activityID)
	}
	return ev, nil
}

// ToggleParticipation records user's yes/no answer on the event. Repeating
// the current answer withdraws it.
func (s *Service) ToggleParticipation(ctx context.Context, activityID, userID string, wantYes bool) (*entity.Event, error) {
	st, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	ev, ok := st.Event(activityID)
	if !ok {
		return nil, notFoundf("event %s does not exist", activityID)
	}
	if _, ok := st.User(userID); !ok {
		return nil, notFoundf("user %s does not exist", userID)
	}
	if !st.IsMember(userID, ev.GroupName) {
		return nil, forbiddenf("only members of %s can answer this event", ev.GroupName)
	}
	ev.Toggle(userID, wantYes)
	if err := s.commit(ctx, st, "toggle_participation"); err != nil {
		return nil, err
	}
	return ev, nil
}

// CancelEvent deletes the event. Only its creator may cancel it.
func (s *Service) CancelEvent(ctx context.Context, activityID, requester string) error {
	st, err := s.load(ctx)
	if err != nil {
		return err
	}
	ev, ok := st.Event(activityID)
	if !ok {
		return notFoundf("event %s does not exist", activityID)
	}
	if ev.CreatedBy != requester {
		return forbiddenf("only the organizer can cancel this event")
	}
	st.removeEvents(func(e *entity.Event) bool { return e.ActivityID == activityID })
	if err := s.commit(ctx, st, "cancel_event"); err != nil {
		return err
	}
	s.logger.Infow("event cancelled", "activity_id", activityID, "user_id", requester)
	return nil
}

// EventRoster lists the answered participants, yes answers first.
func (s *Service) EventRoster(ctx context.Context, activityID string) ([]RosterEntry, error) {
	ev, err := s.GetEvent(ctx, activityID)
	if err != nil {
		return nil, err
	}
	roster := make([]RosterEntry, 0, len(ev.ParticipantsYes)+len(ev.ParticipantsNo))
	for _, u := range ev.ParticipantsYes.Sorted() {
		roster = append(roster, RosterEntry{User: u, Status: entity.AttendingYes})
	}
	for _, u := range ev.ParticipantsNo.Sorted() {
		roster = append(roster, RosterEntry{User: u, Status: entity.AttendingNo})
	}
	return roster, nil
}

// ListEvents returns the current events, optionally only those of group,
// ordered by date. Expired events are never returned. Unless the service
// was built with KeepExpiredOnList, they are also deleted from the table;
// a throttled or failed deletion is logged and does not fail the listing.
func (s *Service) ListEvents(ctx context.Context, group string) ([]*entity.Event, error) {
	st, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	today := s.today()

	if s.sweepOnList {
		if n, err := s.sweep(ctx, st, today); err != nil {
			if errors.Is(err, throttle.ErrThrottled) {
				s.logger.Debugw("expiry sweep skipped", "reason", "throttled")
			} else {
				s.logger.Warnw("expiry sweep failed", "err", err)
			}
		} else if n > 0 {
			s.logger.Infow("expired events removed", "count", n)
		}
	}

	all := make([]*entity.Event, 0, len(st.Events()))
	all = append(all, st.Events()...)
	all = append(all, st.carriedEvents()...)

	var out []*entity.Event
	for _, ev := range all {
		if expired(ev, today) {
			continue
		}
		if group != "" && ev.GroupName != group {
			continue
		}
		out = append(out, ev)
	}
	return sortedEvents(out), nil
}

// CollectExpired deletes every event dated before today and returns how
// many were removed. Nothing is written when no event has expired.
func (s *Service) CollectExpired(ctx context.Context) (int, error) {
	st, err := s.load(ctx)
	if err != nil {
		return 0, err
	}
	return s.sweep(ctx, st, s.today())
}

// sweep removes expired events from st, carried event rows included, and
// commits. On failure st still
// reflects the removal, which only matters to callers that keep reading it.
func (s *Service) sweep(ctx context.Context, st *State, today string) (int, error) {
	removed := len(st.removeEvents(func(e *entity.Event) bool { return expired(e, today) }))
	removed += st.removeOthers(func(r table.Row) bool {
		return r.Type() == table.RowTypeEvent && r.Get(table.ColEventDate) < today
	})
	if removed == 0 {
		return 0, nil
	}
	if err := s.commit(ctx, st, "collect_expired"); err != nil {
		return 0, err
	}
	s.metrics.AddExpired(removed)
	return removed, nil
}

// expired compares ISO dates as strings, so an event on today is kept.
func expired(ev *entity.Event, today string) bool {
	return ev.Date < today
}
