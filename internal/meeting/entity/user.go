package entity

import (
	"github.com/ovaphlow/pitchfork/service-meeting/internal/codec"
	"github.com/ovaphlow/pitchfork/service-meeting/internal/table"
)

// User is a decoded user row. Relationship fields are mirrors kept in sync by
// the meeting service; callers outside it treat them as read-only.
type User struct {
	ID             string    `json:"user_id"`
	Password       string    `json:"-"`
	AvailableDates codec.Set `json:"available_dates"`
	Friends        codec.Set `json:"friends"`
	FriendRequests codec.Set `json:"friend_requests"`
	Groups         codec.Set `json:"groups"`
	GroupMembers   codec.Map `json:"group_members"`
	raw            table.Row
}

// NewUser returns a user with empty relationship fields.
func NewUser(id, password string) *User {
	return &User{
		ID:             id,
		Password:       password,
		AvailableDates: codec.Set{},
		Friends:        codec.Set{},
		FriendRequests: codec.Set{},
		Groups:         codec.Set{},
		GroupMembers:   codec.Map{},
	}
}

// UserFromRow decodes a user row, keeping the raw row so columns the
// service does not know about survive a rewrite.
func UserFromRow(r table.Row) *User {
	return &User{
		ID:             r.Get(table.ColUserID),
		Password:       r.Get(table.ColPassword),
		AvailableDates: codec.DecodeSet(r.Get(table.ColAvailableDates)),
		Friends:        codec.DecodeSet(r.Get(table.ColFriends)),
		FriendRequests: codec.DecodeSet(r.Get(table.ColFriendRequests)),
		Groups:         codec.DecodeSet(r.Get(table.ColGroups)),
		GroupMembers:   codec.DecodeMap(r.Get(table.ColGroupMembers)),
		raw:            r,
	}
}

// Row encodes the user back into a table row.
func (u *User) Row() table.Row {
	r := table.Row{}
	if u.raw != nil {
		r = u.raw.Clone()
	}
	r[table.ColRowType] = table.RowTypeUser
	r[table.ColUserID] = u.ID
	r[table.ColPassword] = u.Password
	r[table.ColAvailableDates] = codec.EncodeSet(u.AvailableDates)
	r[table.ColFriends] = codec.EncodeSet(u.Friends)
	r[table.ColFriendRequests] = codec.EncodeSet(u.FriendRequests)
	r[table.ColGroups] = codec.EncodeSet(u.Groups)
	r[table.ColGroupMembers] = codec.EncodeMap(u.GroupMembers)
	return r
}

// InGroup reports whether the user records membership of g on its own row.
func (u *User) InGroup(g string) bool {
	return u.Groups.Has(g) || u.GroupMembers[g].Has(u.ID)
}

// JoinGroup records g in both mirrored fields of the user's row.
func (u *User) JoinGroup(g string) {
	u.Groups.Add(g)
	members, ok := u.GroupMembers[g]
	if !ok {
		members = codec.Set{}
		u.GroupMembers[g] = members
	}
	members.Add(u.ID)
}

// DropMember removes m from the user's copy of group g, deleting the entry
// once it is empty.
func (u *User) DropMember(g, m string) {
	members, ok := u.GroupMembers[g]
	if !ok {
		return
	}
	members.Remove(m)
	if len(members) == 0 {
		delete(u.GroupMembers, g)
	}
}

// LeaveGroup strips g from both mirrored fields.
func (u *User) LeaveGroup(g string) {
	u.Groups.Remove(g)
	u.DropMember(g, u.ID)
}

// ForgetGroup drops g entirely, including other members listed under it.
func (u *User) ForgetGroup(g string) bool {
	_, listed := u.GroupMembers[g]
	had := u.Groups.Has(g) || listed
	u.Groups.Remove(g)
	delete(u.GroupMembers, g)
	return had
}
