package meeting

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-meeting/internal/meeting/entity"
	"github.com/ovaphlow/pitchfork/service-meeting/internal/session"
	"github.com/ovaphlow/pitchfork/service-meeting/internal/table"
	"github.com/ovaphlow/pitchfork/service-meeting/internal/throttle"
	"github.com/ovaphlow/pitchfork/service-meeting/pkg/utilities"
)

// TokenIssuer hands out bearer tokens at login.
type TokenIssuer interface {
	Issue(userID string) (string, time.Time, error)
}

// Handler exposes the service over HTTP. Authenticated routes expect the
// user id in the request context (see session.Middleware).
type Handler struct {
	svc        *Service
	tokens     TokenIssuer
	admin      string
	retryAfter func() time.Duration
	logger     *zap.SugaredLogger
}

// NewHandler constructs a Handler. retryAfter reports how long a throttled
// client should wait; it may be nil.
func NewHandler(svc *Service, tokens TokenIssuer, admin string, retryAfter func() time.Duration, logger *zap.SugaredLogger) *Handler {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Handler{svc: svc, tokens: tokens, admin: admin, retryAfter: retryAfter, logger: logger}
}

// CredentialsRequest is the body of register and login.
type CredentialsRequest struct {
	UserID   string `json:"user_id" validate:"required,max=64"`
	Password string `json:"password" validate:"required,max=128"`
}

// LoginResponse carries the bearer token.
type LoginResponse struct {
	Token     string    `json:"token"`
	TokenType string    `json:"token_type"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.svc.RegisterUser(r.Context(), req.UserID, req.Password); err != nil {
		h.fail(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, map[string]string{"user_id": req.UserID})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if !h.decode(w, r, &req) {
		return
	}
	ok, err := h.svc.AuthenticateUser(r.Context(), req.UserID, req.Password)
	if err != nil {
		h.fail(w, err)
		return
	}
	if !ok {
		h.logger.Debugw("login failed", "user_id", req.UserID)
		h.writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
		return
	}
	token, exp, err := h.tokens.Issue(req.UserID)
	if err != nil {
		h.logger.Errorw("token issue failed", "err", err)
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "login failed"})
		return
	}
	h.writeJSON(w, http.StatusOK, LoginResponse{Token: token, TokenType: "Bearer", ExpiresAt: exp})
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	u, err := h.svc.GetUser(r.Context(), session.UserFrom(r.Context()))
	if err != nil {
		h.fail(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, u)
}

// AvailabilityRequest replaces the caller's available dates.
type AvailabilityRequest struct {
	Dates []string `json:"dates" validate:"dive,datetime=2006-01-02"`
}

func (h *Handler) UpdateAvailability(w http.ResponseWriter, r *http.Request) {
	var req AvailabilityRequest
	if !h.decode(w, r, &req) {
		return
	}
	dates, err := h.svc.UpdateAvailability(r.Context(), session.UserFrom(r.Context()), req.Dates)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"available_dates": dates})
}

func (h *Handler) AvailableUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.svc.FindUsersByDate(r.Context(), r.URL.Query().Get("date"), session.UserFrom(r.Context()))
	if err != nil {
		h.fail(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"users": nonNil(users)})
}

func (h *Handler) ListFriends(w http.ResponseWriter, r *http.Request) {
	friends, err := h.svc.ListFriends(r.Context(), session.UserFrom(r.Context()))
	if err != nil {
		h.fail(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"friends": nonNil(friends)})
}

func (h *Handler) ListFriendRequests(w http.ResponseWriter, r *http.Request) {
	pending, err := h.svc.ListFriendRequests(r.Context(), session.UserFrom(r.Context()))
	if err != nil {
		h.fail(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"friend_requests": nonNil(pending)})
}

// FriendRequest names the user a request is sent to.
type FriendRequest struct {
	To string `json:"to" validate:"required"`
}

func (h *Handler) SendFriendRequest(w http.ResponseWriter, r *http.Request) {
	var req FriendRequest
	if !h.decode(w, r, &req) {
		return
	}
	auto, err := h.svc.SendFriendRequest(r.Context(), session.UserFrom(r.Context()), req.To)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, map[string]bool{"auto_accepted": auto})
}

func (h *Handler) AcceptFriendRequest(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.AcceptFriendRequest(r.Context(), session.UserFrom(r.Context()), r.PathValue("requester")); err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) RejectFriendRequest(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.RejectFriendRequest(r.Context(), session.UserFrom(r.Context()), r.PathValue("requester")); err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ListGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := h.svc.ListGroupsForUser(r.Context(), session.UserFrom(r.Context()))
	if err != nil {
		h.fail(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"groups": groups})
}

// GroupRequest names a group to create.
type GroupRequest struct {
	Name string `json:"name" validate:"required,max=64"`
}

func (h *Handler) CreateGroup(w http.ResponseWriter, r *http.Request) {
	var req GroupRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.svc.CreateGroup(r.Context(), session.UserFrom(r.Context()), req.Name); err != nil {
		h.fail(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, map[string]string{"name": req.Name})
}

func (h *Handler) DeleteGroup(w http.ResponseWriter, r *http.Request) {
	group := r.PathValue("group")
	if !h.requireMember(w, r, group) {
		return
	}
	if err := h.svc.DeleteGroup(r.Context(), group); err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) GroupMembers(w http.ResponseWriter, r *http.Request) {
	group := r.PathValue("group")
	if !h.requireMember(w, r, group) {
		return
	}
	members, err := h.svc.GroupMembers(r.Context(), group)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"members": members})
}

// InviteRequest names the friend to add to a group.
type InviteRequest struct {
	UserID string `json:"user_id" validate:"required"`
}

func (h *Handler) InviteMember(w http.ResponseWriter, r *http.Request) {
	var req InviteRequest
	if !h.decode(w, r, &req) {
		return
	}
	group := r.PathValue("group")
	if err := h.svc.InviteFriendToGroup(r.Context(), session.UserFrom(r.Context()), req.UserID, group); err != nil {
		h.fail(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, map[string]string{"group": group, "user_id": req.UserID})
}

func (h *Handler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	group := r.PathValue("group")
	if !h.requireMember(w, r, group) {
		return
	}
	if err := h.svc.RemoveMemberFromGroup(r.Context(), group, r.PathValue("user")); err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.svc.ListEvents(r.Context(), r.URL.Query().Get("group"))
	if err != nil {
		h.fail(w, err)
		return
	}
	if events == nil {
		events = []*entity.Event{}
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"events": events})
}

// EventRequest creates an event.
type EventRequest struct {
	GroupName string `json:"group_name" validate:"required"`
	Title     string `json:"event_title" validate:"required,max=200"`
	Date      string `json:"event_date" validate:"required,datetime=2006-01-02"`
	Summary   string `json:"event_summary" validate:"max=2000"`
}

func (h *Handler) AddEvent(w http.ResponseWriter, r *http.Request) {
	var req EventRequest
	if !h.decode(w, r, &req) {
		return
	}
	ev, err := h.svc.AddEvent(r.Context(), req.GroupName, req.Title, req.Date, session.UserFrom(r.Context()), req.Summary)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, ev)
}

func (h *Handler) GetEvent(w http.ResponseWriter, r *http.Request) {
	ev, err := h.svc.GetEvent(r.Context(), r.PathValue("id"))
	if err != nil {
		h.fail(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, ev)
}

func (h *Handler) CancelEvent(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.CancelEvent(r.Context(), r.PathValue("id"), session.UserFrom(r.Context())); err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ParticipationRequest is the caller's answer to an event.
type ParticipationRequest struct {
	Attending string `json:"attending" validate:"required,oneof=yes no"`
}

func (h *Handler) ToggleParticipation(w http.ResponseWriter, r *http.Request) {
	var req ParticipationRequest
	if !h.decode(w, r, &req) {
		return
	}
	user := session.UserFrom(r.Context())
	ev, err := h.svc.ToggleParticipation(r.Context(), r.PathValue("id"), user, req.Attending == entity.AttendingYes)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"event": ev, "attending": ev.Attendance(user)})
}

func (h *Handler) Roster(w http.ResponseWriter, r *http.Request) {
	roster, err := h.svc.EventRoster(r.Context(), r.PathValue("id"))
	if err != nil {
		h.fail(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"roster": roster})
}

func (h *Handler) RosterCSV(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	roster, err := h.svc.EventRoster(r.Context(), id)
	if err != nil {
		h.fail(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "roster-"+id+".csv"))
	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"user_id", "attending"})
	for _, e := range roster {
		_ = cw.Write([]string{e.User, e.Status})
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		h.logger.Warnw("roster csv write failed", "err", err)
	}
}

func (h *Handler) AdminTable(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}
	snap, err := h.svc.Snapshot(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"version": snap.Version, "columns": table.Columns, "rows": snap.Redacted().Rows})
}

func (h *Handler) AdminSweep(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}
	n, err := h.svc.CollectExpired(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]int{"removed": n})
}

func (h *Handler) AdminIntegrity(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}
	violations, err := h.svc.CheckIntegrity(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	if violations == nil {
		violations = []Violation{}
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"violations": violations})
}

func (h *Handler) requireMember(w http.ResponseWriter, r *http.Request, group string) bool {
	ok, err := h.svc.IsGroupMember(r.Context(), session.UserFrom(r.Context()), group)
	if err != nil {
		h.fail(w, err)
		return false
	}
	if !ok {
		h.writeJSON(w, http.StatusForbidden, map[string]string{"error": "you are not a member of this group"})
		return false
	}
	return true
}

func (h *Handler) requireAdmin(w http.ResponseWriter, r *http.Request) bool {
	if h.admin == "" || session.UserFrom(r.Context()) != h.admin {
		h.writeJSON(w, http.StatusForbidden, map[string]string{"error": "admin only"})
		return false
	}
	return true
}

// decode reads and validates a JSON body, answering 400 itself on failure.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.logger.Debugw("invalid payload", "path", r.URL.Path, "err", err)
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return false
	}
	if err := utilities.ValidateStruct(v); err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return false
	}
	return true
}

// fail maps service errors to status codes.
func (h *Handler) fail(w http.ResponseWriter, err error) {
	var me *Error
	switch {
	case errors.Is(err, throttle.ErrThrottled):
		if h.retryAfter != nil {
			secs := int(math.Ceil(h.retryAfter().Seconds()))
			if secs < 1 {
				secs = 1
			}
			w.Header().Set("Retry-After", fmt.Sprint(secs))
		}
		h.writeJSON(w, http.StatusTooManyRequests, map[string]string{"error": err.Error()})
	case errors.As(err, &me):
		h.writeJSON(w, statusFor(me.Kind), map[string]string{"error": me.Message})
	case table.IsTransport(err):
		h.logger.Warnw("table unavailable", "err", err)
		h.writeJSON(w, http.StatusBadGateway, map[string]string{"error": "storage unavailable, nothing was saved"})
	default:
		h.logger.Errorw("request failed", "err", err)
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func statusFor(kind error) int {
	switch kind {
	case ErrValidation:
		return http.StatusBadRequest
	case ErrForbidden:
		return http.StatusForbidden
	case ErrNotFound:
		return http.StatusNotFound
	case ErrConflict:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
