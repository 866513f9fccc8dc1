package entity

import (
	"github.com/ovaphlow/pitchfork/service-meeting/internal/codec"
	"github.com/ovaphlow/pitchfork/service-meeting/internal/table"
)

// Attendance states of a user on an event.
const (
	AttendingYes = "yes"
	AttendingNo  = "no"
)

// Event is a decoded event row.
type Event struct {
	ActivityID      string    `json:"activity_id"`
	GroupName       string    `json:"group_name"`
	Title           string    `json:"event_title"`
	Date            string    `json:"event_date"`
	CreatedBy       string    `json:"created_by"`
	Summary         string    `json:"event_summary"`
	ParticipantsYes codec.Set `json:"participants_yes"`
	ParticipantsNo  codec.Set `json:"participants_no"`
	raw             table.Row
}

// EventFromRow decodes an event row.
func EventFromRow(r table.Row) *Event {
	return &Event{
		ActivityID:      r.Get(table.ColActivityID),
		GroupName:       r.Get(table.ColGroupName),
		Title:           r.Get(table.ColEventTitle),
		Date:            r.Get(table.ColEventDate),
		CreatedBy:       r.Get(table.ColCreatedBy),
		Summary:         r.Get(table.ColEventSummary),
		ParticipantsYes: codec.DecodeSet(r.Get(table.ColParticipantsYes)),
		ParticipantsNo:  codec.DecodeSet(r.Get(table.ColParticipantsNo)),
		raw:             r,
	}
}

// Row encodes the event back into a table row.
func (e *Event) Row() table.Row {
	r := table.Row{}
	if e.raw != nil {
		r = e.raw.Clone()
	}
	r[table.ColRowType] = table.RowTypeEvent
	r[table.ColActivityID] = e.ActivityID
	r[table.ColGroupName] = e.GroupName
	r[table.ColEventTitle] = e.Title
	r[table.ColEventDate] = e.Date
	r[table.ColCreatedBy] = e.CreatedBy
	r[table.ColEventSummary] = e.Summary
	r[table.ColParticipantsYes] = codec.EncodeSet(e.ParticipantsYes)
	r[table.ColParticipantsNo] = codec.EncodeSet(e.ParticipantsNo)
	return r
}

// Attendance returns AttendingYes, AttendingNo or "" for user.
func (e *Event) Attendance(user string) string {
	switch {
	case e.ParticipantsYes.Has(user):
		return AttendingYes
	case e.ParticipantsNo.Has(user):
		return AttendingNo
	}
	return ""
}

// Toggle records the user's answer. Choosing the answer already recorded
// withdraws it. The two participant sets never share a member afterwards.
func (e *Event) Toggle(user string, yes bool) {
	chosen, other := e.ParticipantsYes, e.ParticipantsNo
	if !yes {
		chosen, other = other, chosen
	}
	if chosen.Has(user) {
		chosen.Remove(user)
		return
	}
	other.Remove(user)
	chosen.Add(user)
}
