package meeting

import (
	"context"
	"fmt"
	"sort"
)

// Violation kinds reported by CheckIntegrity.
const (
	ViolationAsymmetricFriend = "asymmetric_friendship"
	ViolationUnknownFriend    = "unknown_friend"
	ViolationRequestToFriend  = "request_between_friends"
	ViolationMirrorGap        = "group_mirror_gap"
	ViolationForeignMember    = "foreign_member"
	ViolationParticipants     = "participant_overlap"
)

// Violation is one broken relationship invariant found in the table.
type Violation struct {
	Kind    string `json:"kind"`
	Subject string `json:"subject"`
	Detail  string `json:"detail"`
}

func (v Violation) String() string {
	return fmt.Sprintf("%s %s: %s", v.Kind, v.Subject, v.Detail)
}

// Check walks the decoded table and reports every broken mirror. An empty
// result means the relationship fields are consistent.
func (s *State) Check() []Violation {
	var out []Violation
	add := func(kind, subject, format string, args ...any) {
		out = append(out, Violation{Kind: kind, Subject: subject, Detail: fmt.Sprintf(format, args...)})
	}

	for _, u := range s.users {
		for f := range u.Friends {
			other, ok := s.userIdx[f]
			if !ok {
				add(ViolationUnknownFriend, u.ID, "friend %s has no user row", f)
				continue
			}
			if !other.Friends.Has(u.ID) {
				add(ViolationAsymmetricFriend, u.ID, "%s does not list %s as a friend", f, u.ID)
			}
		}
		for r := range u.FriendRequests {
			if u.Friends.Has(r) {
				add(ViolationRequestToFriend, u.ID, "pending request from friend %s", r)
			}
		}
		for g := range u.Groups {
			if !u.GroupMembers[g].Has(u.ID) {
				add(ViolationMirrorGap, u.ID, "group %s missing from own group_members", g)
			}
		}
		for g, members := range u.GroupMembers {
			for m := range members {
				other, ok := s.userIdx[m]
				if !ok {
					add(ViolationForeignMember, u.ID, "group %s lists unknown user %s", g, m)
					continue
				}
				if !other.Groups.Has(g) {
					add(ViolationMirrorGap, u.ID, "group %s lists %s, who does not list the group", g, m)
				}
			}
		}
	}
	for _, e := range s.events {
		for m := range e.ParticipantsYes {
			if e.ParticipantsNo.Has(m) {
				add(ViolationParticipants, e.ActivityID, "%s answered both yes and no", m)
			}
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Kind != out[j].Kind {
			return out[i].Kind < out[j].Kind
		}
		if out[i].Subject != out[j].Subject {
			return out[i].Subject < out[j].Subject
		}
		return out[i].Detail < out[j].Detail
	})
	return out
}

// CheckIntegrity reads the table and reports broken relationship
// invariants. It never writes.
func (s *Service) CheckIntegrity(ctx context.Context) ([]Violation, error) {
	st, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return st.Check(), nil
}
