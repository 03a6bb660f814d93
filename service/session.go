package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"session-gateway/constant"
	"session-gateway/dto"
	"session-gateway/entities"
	"session-gateway/pkg/identity"
	"session-gateway/pkg/normalize"
	"session-gateway/pkg/retry"
	"session-gateway/pkg/sessionrpc"
)

const (
	defaultListRetries = 3
	defaultListDelay   = time.Second
)

// RPCProvider hands out a transport bound to the given identity.
type RPCProvider interface {
	For(id *identity.Identity) sessionrpc.SessionRPC
}

// EventPublisher emits session lifecycle events after mutations. Publishing
// is best-effort and never fails the operation.
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, body interface{}) error
}

// SessionService is the single access point for session operations. Reads
// degrade to empty results on failure; mutations fail fast and are never
// retried, since retrying a non-idempotent remote mutation without
// idempotency keys risks duplicate effects.
type SessionService interface {
	CreateSession(ctx context.Context, input dto.CreateSessionInput) (*entities.Session, error)
	GetSession(ctx context.Context, id string) (*entities.Session, error)
	ListSessions(ctx context.Context) ([]*entities.Session, error)
	ListSessionsWithRetry(ctx context.Context, maxRetries uint, retryDelay time.Duration) ([]*entities.Session, error)
	MySessions(ctx context.Context) ([]*entities.Session, error)
	UpdateSession(ctx context.Context, id string, input dto.UpdateSessionInput) (*entities.Session, error)
	DeleteSession(ctx context.Context, id string) (bool, error)
	JoinSession(ctx context.Context, id string) (*dto.JoinResult, error)
	LeaveSession(ctx context.Context, id string) (*entities.Session, error)
	UpdateSessionStatus(ctx context.Context, id string, status constant.SessionStatus) (*entities.Session, error)
	StartRecording(ctx context.Context, id string) (*entities.Session, error)
	StopRecording(ctx context.Context, id string) (*entities.Session, error)
	SessionsByStatus(ctx context.Context, status constant.SessionStatus) ([]*entities.Session, error)
	SessionsByType(ctx context.Context, sessionType constant.SessionType) ([]*entities.Session, error)
	UpcomingSessions(ctx context.Context) ([]*entities.Session, error)
	LiveSessions(ctx context.Context) ([]*entities.Session, error)
	StatusLabel(status constant.SessionStatus) string
	TypeLabel(sessionType constant.SessionType) string
}

type sessionService struct {
	rpc      RPCProvider
	profiles ProfileSource
	events   EventPublisher
}

// ProfileSource enriches host display fields from the profile cache; nil
// disables enrichment.
type ProfileSource interface {
	GetProfile(ctx context.Context, principal string) (*entities.UserProfile, error)
}

func NewSessionService(rpc RPCProvider, profiles ProfileSource, events EventPublisher) SessionService {
	return &sessionService{
		rpc:      rpc,
		profiles: profiles,
		events:   events,
	}
}

func (s *sessionService) client(ctx context.Context) sessionrpc.SessionRPC {
	return s.rpc.For(identity.FromContext(ctx))
}

func (s *sessionService) authClient(ctx context.Context) (sessionrpc.SessionRPC, *identity.Identity, error) {
	id := identity.FromContext(ctx)
	if id == nil {
		return nil, nil, ErrAuthRequired
	}
	return s.rpc.For(id), id, nil
}

func (s *sessionService) CreateSession(ctx context.Context, input dto.CreateSessionInput) (*entities.Session, error) {
	rpc, id, err := s.authClient(ctx)
	if err != nil {
		return nil, err
	}

	tags := input.Tags
	if tags == nil {
		tags = []string{}
	}
	sessionType := normalize.TypeKey(string(input.SessionType))
	maxAttendees := input.MaxAttendees
	if maxAttendees < 0 {
		maxAttendees = 0
	}

	// The server speaks 64-bit integers for times and counts.
	wire := map[string]interface{}{
		"title":              input.Title,
		"description":        input.Description,
		"tags":               tags,
		"sessionType":        map[string]interface{}{string(sessionType): nil},
		"scheduledTime":      input.ScheduledTime.UnixNano(),
		"duration":           int64(input.Duration),
		"maxAttendees":       int64(maxAttendees),
		"isRecordingEnabled": input.IsRecordingEnabled,
		"isPrivate":          input.IsPrivate,
	}
	if input.Price != nil {
		wire["price"] = *input.Price
	}

	payload, err := rpc.CreateSession(ctx, wire)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	record, ok := normalize.Record(payload)
	if !ok {
		return nil, fmt.Errorf("failed to create session: %w", ErrInvalidResponse)
	}
	session, err := normalize.Session(record)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	s.publish(ctx, "session.created", session.ID, id)
	s.enrichHost(ctx, session)
	return session, nil
}

// GetSession returns nil on any failure; absence is a legitimate outcome on
// read paths and must not crash a render.
func (s *sessionService) GetSession(ctx context.Context, id string) (*entities.Session, error) {
	payload, err := s.client(ctx).GetSession(ctx, id)
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("session_id", id).Msg("failed to fetch session")
		return nil, nil
	}

	v, ok := normalize.Optional(payload)
	if !ok {
		return nil, nil
	}
	record, ok := normalize.Record(v)
	if !ok {
		zerolog.Ctx(ctx).Warn().Str("session_id", id).Msg("session payload is not a record")
		return nil, nil
	}
	session, err := normalize.Session(record)
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("session_id", id).Msg("failed to normalize session")
		return nil, nil
	}

	s.enrichHost(ctx, session)
	return session, nil
}

func (s *sessionService) ListSessions(ctx context.Context) ([]*entities.Session, error) {
	return s.ListSessionsWithRetry(ctx, defaultListRetries, defaultListDelay)
}

// ListSessionsWithRetry retries the bulk fetch with linear backoff. This is
// the only retried operation; it is idempotent by construction.
func (s *sessionService) ListSessionsWithRetry(ctx context.Context, maxRetries uint, retryDelay time.Duration) ([]*entities.Session, error) {
	rpc := s.client(ctx)
	payload, err := retry.Do(ctx, maxRetries, retryDelay, func() (interface{}, error) {
		return rpc.GetAllSessions(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch sessions: %w", err)
	}
	return s.normalizeList(ctx, payload), nil
}

func (s *sessionService) MySessions(ctx context.Context) ([]*entities.Session, error) {
	rpc, _, err := s.authClient(ctx)
	if err != nil {
		return nil, err
	}
	payload, err := rpc.GetMySessions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch my sessions: %w", err)
	}
	return s.normalizeList(ctx, payload), nil
}

// normalizeList maps a raw bulk payload. A non-array payload means "no data",
// and a single malformed record is skipped rather than failing the whole
// listing.
func (s *sessionService) normalizeList(ctx context.Context, payload interface{}) []*entities.Session {
	sessions := []*entities.Session{}
	items, ok := payload.([]interface{})
	if !ok {
		return sessions
	}
	for _, item := range items {
		record, ok := normalize.Record(item)
		if !ok {
			zerolog.Ctx(ctx).Warn().Msg("skipping non-record entry in session list")
			continue
		}
		session, err := normalize.Session(record)
		if err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Msg("skipping malformed session record")
			continue
		}
		s.enrichHost(ctx, session)
		sessions = append(sessions, session)
	}
	return sessions
}

func (s *sessionService) UpdateSession(ctx context.Context, id string, input dto.UpdateSessionInput) (*entities.Session, error) {
	rpc, callerID, err := s.authClient(ctx)
	if err != nil {
		return nil, err
	}

	patch := map[string]interface{}{}
	if input.Title != nil {
		patch["title"] = *input.Title
	}
	if input.Description != nil {
		patch["description"] = *input.Description
	}
	if input.Tags != nil {
		patch["tags"] = *input.Tags
	}
	if input.SessionType != nil {
		patch["sessionType"] = map[string]interface{}{string(normalize.TypeKey(string(*input.SessionType))): nil}
	}
	if input.ScheduledTime != nil {
		patch["scheduledTime"] = input.ScheduledTime.UnixNano()
	}
	if input.Duration != nil {
		patch["duration"] = int64(*input.Duration)
	}
	if input.MaxAttendees != nil {
		patch["maxAttendees"] = int64(*input.MaxAttendees)
	}
	if input.IsPrivate != nil {
		patch["isPrivate"] = *input.IsPrivate
	}
	if input.Price != nil {
		patch["price"] = *input.Price
	}

	payload, err := rpc.UpdateSession(ctx, id, patch)
	if err != nil {
		return nil, fmt.Errorf("failed to update session: %w", err)
	}
	session, err := s.sessionFromPayload(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to update session: %w", err)
	}

	s.publish(ctx, "session.updated", session.ID, callerID)
	s.enrichHost(ctx, session)
	return session, nil
}

// DeleteSession returns exactly the boolean the server provided.
func (s *sessionService) DeleteSession(ctx context.Context, id string) (bool, error) {
	rpc, callerID, err := s.authClient(ctx)
	if err != nil {
		return false, err
	}

	payload, err := rpc.DeleteSession(ctx, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete session: %w", err)
	}
	deleted, ok := payload.(bool)
	if !ok {
		return false, fmt.Errorf("%w: expected boolean, got %T", ErrUnexpectedFormat, payload)
	}

	if deleted {
		s.publish(ctx, "session.deleted", id, callerID)
	}
	return deleted, nil
}

// JoinSession returns the refreshed session plus whether the caller is now a
// moderator of it.
func (s *sessionService) JoinSession(ctx context.Context, id string) (*dto.JoinResult, error) {
	rpc, callerID, err := s.authClient(ctx)
	if err != nil {
		return nil, err
	}

	payload, err := rpc.JoinSession(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to join session: %w", err)
	}
	record, ok := normalize.Record(payload)
	if !ok {
		return nil, fmt.Errorf("failed to join session: %w", ErrInvalidResponse)
	}

	sessionValue, ok := normalize.Optional(record["session"])
	if !ok {
		return nil, fmt.Errorf("failed to join session: %w", ErrInvalidResponse)
	}
	sessionRecord, ok := normalize.Record(sessionValue)
	if !ok {
		return nil, fmt.Errorf("failed to join session: %w", ErrInvalidResponse)
	}
	session, err := normalize.Session(sessionRecord)
	if err != nil {
		return nil, fmt.Errorf("failed to join session: %w", err)
	}

	moderator := false
	if b, ok := record["isModerator"].(bool); ok {
		moderator = b
	}

	s.publish(ctx, "session.joined", session.ID, callerID)
	s.enrichHost(ctx, session)
	return &dto.JoinResult{Session: session, IsModerator: moderator}, nil
}

func (s *sessionService) LeaveSession(ctx context.Context, id string) (*entities.Session, error) {
	return s.mutateSession(ctx, id, "session.left", "failed to leave session",
		func(rpc sessionrpc.SessionRPC) (interface{}, error) { return rpc.LeaveSession(ctx, id) })
}

func (s *sessionService) UpdateSessionStatus(ctx context.Context, id string, status constant.SessionStatus) (*entities.Session, error) {
	statusKey := string(normalize.StatusKey(string(status)))
	return s.mutateSession(ctx, id, "session.status_changed", "failed to update session status",
		func(rpc sessionrpc.SessionRPC) (interface{}, error) { return rpc.UpdateSessionStatus(ctx, id, statusKey) })
}

func (s *sessionService) StartRecording(ctx context.Context, id string) (*entities.Session, error) {
	return s.mutateSession(ctx, id, "session.recording_started", "failed to start recording",
		func(rpc sessionrpc.SessionRPC) (interface{}, error) { return rpc.StartRecording(ctx, id) })
}

func (s *sessionService) StopRecording(ctx context.Context, id string) (*entities.Session, error) {
	return s.mutateSession(ctx, id, "session.recording_stopped", "failed to stop recording",
		func(rpc sessionrpc.SessionRPC) (interface{}, error) { return rpc.StopRecording(ctx, id) })
}

// mutateSession is the shared shape of the fail-fast session mutations.
func (s *sessionService) mutateSession(ctx context.Context, id, event, failurePrefix string, call func(sessionrpc.SessionRPC) (interface{}, error)) (*entities.Session, error) {
	rpc, callerID, err := s.authClient(ctx)
	if err != nil {
		return nil, err
	}

	payload, err := call(rpc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", failurePrefix, err)
	}
	session, err := s.sessionFromPayload(payload)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", failurePrefix, err)
	}

	s.publish(ctx, event, session.ID, callerID)
	s.enrichHost(ctx, session)
	return session, nil
}

func (s *sessionService) sessionFromPayload(payload interface{}) (*entities.Session, error) {
	record, ok := normalize.Record(payload)
	if !ok {
		return nil, ErrInvalidResponse
	}
	return normalize.Session(record)
}

func (s *sessionService) SessionsByStatus(ctx context.Context, status constant.SessionStatus) ([]*entities.Session, error) {
	payload, err := s.client(ctx).SessionsByStatus(ctx, string(normalize.StatusKey(string(status))))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch sessions by status: %w", err)
	}
	return s.normalizeList(ctx, payload), nil
}

func (s *sessionService) SessionsByType(ctx context.Context, sessionType constant.SessionType) ([]*entities.Session, error) {
	payload, err := s.client(ctx).SessionsByType(ctx, string(normalize.TypeKey(string(sessionType))))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch sessions by type: %w", err)
	}
	return s.normalizeList(ctx, payload), nil
}

func (s *sessionService) UpcomingSessions(ctx context.Context) ([]*entities.Session, error) {
	payload, err := s.client(ctx).UpcomingSessions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch upcoming sessions: %w", err)
	}
	return s.normalizeList(ctx, payload), nil
}

func (s *sessionService) LiveSessions(ctx context.Context) ([]*entities.Session, error) {
	payload, err := s.client(ctx).LiveSessions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch live sessions: %w", err)
	}
	return s.normalizeList(ctx, payload), nil
}

// StatusLabel maps a status to its display string.
func (s *sessionService) StatusLabel(status constant.SessionStatus) string {
	switch status {
	case constant.SessionStatusScheduled:
		return "Scheduled"
	case constant.SessionStatusLive:
		return "Live"
	case constant.SessionStatusCompleted:
		return "Completed"
	case constant.SessionStatusCancelled:
		return "Cancelled"
	case constant.SessionStatusRecording:
		return "Recording"
	default:
		return "Unknown"
	}
}

// TypeLabel maps a session type to its display string.
func (s *sessionService) TypeLabel(sessionType constant.SessionType) string {
	switch sessionType {
	case constant.SessionTypeVideo:
		return "Video Call"
	case constant.SessionTypeVoice:
		return "Voice Call"
	case constant.SessionTypeScreenShare:
		return "Screen Share"
	case constant.SessionTypeWebinar:
		return "Webinar"
	default:
		return "Unknown"
	}
}

func (s *sessionService) publish(ctx context.Context, event, sessionID string, id *identity.Identity) {
	if s.events == nil {
		return
	}
	principal := ""
	if id != nil {
		principal = id.Principal
	}
	err := s.events.Publish(ctx, event, dto.SessionEvent{
		ID:        uuid.NewString(),
		Event:     event,
		SessionID: sessionID,
		Principal: principal,
		At:        time.Now(),
	})
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("event", event).Msg("failed to publish session event")
	}
}

func (s *sessionService) enrichHost(ctx context.Context, session *entities.Session) {
	if s.profiles == nil || session.HostID == "" {
		return
	}
	if session.HostName != "" && session.HostAvatar != "" {
		return
	}
	profile, err := s.profiles.GetProfile(ctx, session.HostID)
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("principal", session.HostID).Msg("failed to read profile cache")
		return
	}
	if profile == nil {
		return
	}
	if session.HostName == "" {
		session.HostName = profile.DisplayName
	}
	if session.HostAvatar == "" {
		session.HostAvatar = profile.AvatarURL
	}
}
