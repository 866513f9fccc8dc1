package meeting

import (
	"context"

	"github.com/ovaphlow/pitchfork/service-meeting/internal/codec"
	"github.com/ovaphlow/pitchfork/service-meeting/internal/meeting/entity"
	"github.com/ovaphlow/pitchfork/service-meeting/internal/table"
)

// CreateGroup registers a new group name with user as its first member.
func (s *Service) CreateGroup(ctx context.Context, user, name string) error {
	if !codec.ValidToken(name) {
		return validationf("group name must not be empty, padded, or contain ',', ':' or '|'")
	}
	st, err := s.load(ctx)
	if err != nil {
		return err
	}
	u, ok := st.User(user)
	if !ok {
		return notFoundf("user %s does not exist", user)
	}
	if st.GroupExists(name) {
		return conflictf("group name %s already exists", name)
	}
	u.JoinGroup(name)
	if err := s.commit(ctx, st, "create_group"); err != nil {
		return err
	}
	s.logger.Infow("group created", "group", name, "user_id", user)
	return nil
}

// InviteFriendToGroup adds friend to group. Only the invitee's row changes:
// it gains group in both its groups and group_members fields.
func (s *Service) InviteFriendToGroup(ctx context.Context, current, friend, group string) error {
	if current == friend {
		return validationf("you cannot invite yourself")
	}
	st, err := s.load(ctx)
	if err != nil {
		return err
	}
	f, ok := st.User(friend)
	if !ok {
		return notFoundf("user %s does not exist", friend)
	}
	c, ok := st.User(current)
	if !ok {
		return notFoundf("user %s does not exist", current)
	}
	if !c.Friends.Has(friend) {
		return forbiddenf("you can only invite friends to a group")
	}
	if !st.IsMember(current, group) {
		return forbiddenf("you are not a member of group %s", group)
	}
	if st.IsMember(friend, group) {
		return conflictf("%s is already a member of %s", friend, group)
	}
	f.JoinGroup(group)
	return s.commit(ctx, st, "invite_friend_to_group")
}

// RemoveMemberFromGroup strips group from target's row and removes target
// from every row's copy of the group's member list. Removing a user who is
// not a member changes nothing.
func (s *Service) RemoveMemberFromGroup(ctx context.Context, group, target string) error {
	st, err := s.load(ctx)
	if err != nil {
		return err
	}
	t, ok := st.User(target)
	if !ok {
		return notFoundf("member %s does not exist", target)
	}
	if !st.IsMember(target, group) {
		return nil
	}
	t.LeaveGroup(group)
	for _, u := range st.Users() {
		u.DropMember(group, target)
	}
	if err := s.commit(ctx, st, "remove_member_from_group"); err != nil {
		return err
	}
	s.logger.Infow("member removed from group", "group", group, "user_id", target)
	return nil
}

// DeleteGroup removes the group from every user row and deletes its events
// (and legacy group rows) in one write.
func (s *Service) DeleteGroup(ctx context.Context, name string) error {
	st, err := s.load(ctx)
	if err != nil {
		return err
	}
	touched := 0
	for _, u := range st.Users() {
		if u.ForgetGroup(name) {
			touched++
		}
	}
	events := st.removeEvents(func(e *entity.Event) bool { return e.GroupName == name })
	legacy := st.removeOthers(func(r table.Row) bool {
		t := r.Type()
		return (t == table.RowTypeGroup || t == table.RowTypeEvent) && r.Get(table.ColGroupName) == name
	})
	if touched == 0 && len(events) == 0 && legacy == 0 {
		return notFoundf("group %s does not exist", name)
	}
	if err := s.commit(ctx, st, "delete_group"); err != nil {
		return err
	}
	s.logger.Infow("group deleted", "group", name, "members", touched, "events", len(events))
	return nil
}

// ListGroupsForUser maps each group of user to its sorted member list.
func (s *Service) ListGroupsForUser(ctx context.Context, user string) (map[string][]string, error) {
	st, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	u, ok := st.User(user)
	if !ok {
		return nil, notFoundf("user %s does not exist", user)
	}
	names := u.Groups.Clone()
	for g, members := range u.GroupMembers {
		if members.Has(u.ID) {
			names.Add(g)
		}
	}
	out := make(map[string][]string, len(names))
	for g := range names {
		out[g] = st.GroupMembers(g).Sorted()
	}
	return out, nil
}

// GroupMembers returns the member list of group.
func (s *Service) GroupMembers(ctx context.Context, group string) ([]string, error) {
	st, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	members := st.GroupMembers(group)
	if len(members) == 0 {
		return nil, notFoundf("group %s does not exist", group)
	}
	return members.Sorted(), nil
}

// IsGroupMember reports whether user belongs to group.
func (s *Service) IsGroupMember(ctx context.Context, user, group string) (bool, error) {
	st, err := s.load(ctx)
	if err != nil {
		return false, err
	}
	return st.IsMember(user, group), nil
}
