package meeting

import (
	"context"
)

// SendFriendRequest records a pending request from `from` on `to`'s row.
// When `to` already asked `from`, the two requests meet and both users
// become friends at once; autoAccepted reports that case.
func (s *Service) SendFriendRequest(ctx context.Context, from, to string) (autoAccepted bool, err error) {
	if from == to {
		return false, validationf("you cannot send a friend request to yourself")
	}
	st, err := s.load(ctx)
	if err != nil {
		return false, err
	}
	sender, ok := st.User(from)
	if !ok {
		return false, notFoundf("user %s does not exist", from)
	}
	target, ok := st.User(to)
	if !ok {
		return false, notFoundf("user %s does not exist", to)
	}
	if sender.Friends.Has(to) {
		return false, conflictf("%s is already your friend", to)
	}
	if target.FriendRequests.Has(from) {
		return false, conflictf("friend request already sent, waiting for %s to respond", to)
	}

	if sender.FriendRequests.Has(to) {
		befriend(sender, target)
		if err := s.commit(ctx, st, "send_friend_request"); err != nil {
			return false, err
		}
		s.logger.Infow("reciprocal friend request accepted", "user_id", from, "friend", to)
		return true, nil
	}

	target.FriendRequests.Add(from)
	if err := s.commit(ctx, st, "send_friend_request"); err != nil {
		return false, err
	}
	return false, nil
}

// AcceptFriendRequest makes user and requester friends on both rows and
// clears the pending request, all in one write.
func (s *Service) AcceptFriendRequest(ctx context.Context, user, requester string) error {
	st, err := s.load(ctx)
	if err != nil {
		return err
	}
	u, ok := st.User(user)
	if !ok {
		return notFoundf("user %s does not exist", user)
	}
	if !u.FriendRequests.Has(requester) {
		return notFoundf("no pending friend request from %s", requester)
	}
	r, ok := st.User(requester)
	if !ok {
		return notFoundf("user %s does not exist", requester)
	}
	befriend(u, r)
	return s.commit(ctx, st, "accept_friend_request")
}

// RejectFriendRequest drops the pending request from requester.
func (s *Service) RejectFriendRequest(ctx context.Context, user, requester string) error {
	st, err := s.load(ctx)
	if err != nil {
		return err
	}
	u, ok := st.User(user)
	if !ok {
		return notFoundf("user %s does not exist", user)
	}
	if !u.FriendRequests.Has(requester) {
		return notFoundf("no pending friend request from %s", requester)
	}
	u.FriendRequests.Remove(requester)
	return s.commit(ctx, st, "reject_friend_request")
}

// ListFriendRequests returns who is waiting for user's answer.
func (s *Service) ListFriendRequests(ctx context.Context, user string) ([]string, error) {
	u, err := s.GetUser(ctx, user)
	if err != nil {
		return nil, err
	}
	return u.FriendRequests.Sorted(), nil
}

// ListFriends returns user's friends.
func (s *Service) ListFriends(ctx context.Context, user string) ([]string, error) {
	u, err := s.GetUser(ctx, user)
	if err != nil {
		return nil, err
	}
	return u.Friends.Sorted(), nil
}
