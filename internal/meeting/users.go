package meeting

import (
	"context"

	"github.com/ovaphlow/pitchfork/service-meeting/internal/codec"
	"github.com/ovaphlow/pitchfork/service-meeting/internal/meeting/entity"
)

// RegisterUser creates a user row with empty relationship fields.
func (s *Service) RegisterUser(ctx context.Context, id, password string) error {
	if !codec.ValidToken(id) {
		return validationf("user id must not be empty, padded, or contain ',', ':' or '|'")
	}
	if err := ValidatePassword(password); err != nil {
		return err
	}
	st, err := s.load(ctx)
	if err != nil {
		return err
	}
	if _, ok := st.User(id); ok {
		return conflictf("user id %s already exists", id)
	}
	stored, err := s.hasher.Hash(password)
	if err != nil {
		return err
	}
	st.addUser(entity.NewUser(id, stored))
	if err := s.commit(ctx, st, "register_user"); err != nil {
		return err
	}
	s.logger.Infow("user registered", "user_id", id)
	return nil
}

// AuthenticateUser checks credentials. Unknown users are reported as a
// failed match, not as an error.
func (s *Service) AuthenticateUser(ctx context.Context, id, password string) (bool, error) {
	st, err := s.load(ctx)
	if err != nil {
		return false, err
	}
	u, ok := st.User(id)
	if !ok {
		return false, nil
	}
	return s.hasher.Verify(u.Password, password), nil
}

// GetUser returns the decoded user row.
func (s *Service) GetUser(ctx context.Context, id string) (*entity.User, error) {
	st, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	u, ok := st.User(id)
	if !ok {
		return nil, notFoundf("user %s does not exist", id)
	}
	return u, nil
}

// UpdateAvailability replaces the user's available dates with dates.
func (s *Service) UpdateAvailability(ctx context.Context, id string, dates []string) (codec.Set, error) {
	set := codec.NewSet(dates...)
	for d := range set {
		if !validDate(d) {
			return nil, validationf("invalid date %q, expected YYYY-MM-DD", d)
		}
	}
	st, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	u, ok := st.User(id)
	if !ok {
		return nil, notFoundf("user %s does not exist", id)
	}
	u.AvailableDates = set
	if err := s.commit(ctx, st, "update_availability"); err != nil {
		return nil, err
	}
	return set, nil
}

// FindUsersByDate lists users available on date, leaving out exclude.
func (s *Service) FindUsersByDate(ctx context.Context, date, exclude string) ([]string, error) {
	if !validDate(date) {
		return nil, validationf("invalid date %q, expected YYYY-MM-DD", date)
	}
	st, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	found := codec.Set{}
	for _, u := range st.Users() {
		if u.ID != exclude && u.AvailableDates.Has(date) {
			found.Add(u.ID)
		}
	}
	return found.Sorted(), nil
}
