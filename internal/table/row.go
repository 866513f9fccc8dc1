package table

// Column names of the meeting table.
const (
	ColRowType         = "row_type"
	ColUserID          = "user_id"
	ColPassword        = "password"
	ColAvailableDates  = "available_dates"
	ColFriends         = "friends"
	ColFriendRequests  = "friend_requests"
	ColGroups          = "groups"
	ColGroupMembers    = "group_members"
	ColGroupName       = "group_name"
	ColActivityID      = "activity_id"
	ColEventTitle      = "event_title"
	ColEventDate       = "event_date"
	ColCreatedBy       = "created_by"
	ColEventSummary    = "event_summary"
	ColParticipantsYes = "participants_yes"
	ColParticipantsNo  = "participants_no"
)

// Row types stored in ColRowType. An empty value is a legacy user row.
const (
	RowTypeUser  = "user"
	RowTypeEvent = "event"
	RowTypeGroup = "group"
)

// Columns is the required column set in the order used when the table is
// written out as a sheet.
var Columns = []string{
	ColRowType, ColUserID, ColPassword, ColAvailableDates, ColFriends,
	ColFriendRequests, ColGroups, ColGroupMembers, ColGroupName, ColActivityID,
	ColEventTitle, ColEventDate, ColCreatedBy, ColEventSummary,
	ColParticipantsYes, ColParticipantsNo,
}

// Row maps a column name to its cell value.
type Row map[string]string

// Get returns the cell value, "" when absent.
func (r Row) Get(col string) string { return r[col] }

// Clone returns an independent copy of the row.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Type returns the row discriminator, treating a missing one as a user row.
func (r Row) Type() string {
	if t := r[ColRowType]; t != "" {
		return t
	}
	return RowTypeUser
}

// Snapshot is the whole table as read at one instant. Version identifies the
// backend state it was read from; it is only checked when the store runs in
// optimistic mode.
type Snapshot struct {
	Rows    []Row
	Version int64
}

// RedactedPassword replaces password cells in dumps meant for people.
const RedactedPassword = "***"

// Redacted returns a copy of the snapshot with every non-empty password
// cell replaced by RedactedPassword.
func (s *Snapshot) Redacted() *Snapshot {
	out := s.Clone()
	for _, r := range out.Rows {
		if r.Get(ColPassword) != "" {
			r[ColPassword] = RedactedPassword
		}
	}
	return out
}

// Clone deep-copies the snapshot.
func (s *Snapshot) Clone() *Snapshot {
	rows := make([]Row, len(s.Rows))
	for i, r := range s.Rows {
		rows[i] = r.Clone()
	}
	return &Snapshot{Rows: rows, Version: s.Version}
}
