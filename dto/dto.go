package dto

import (
	"time"

	"session-gateway/constant"
	"session-gateway/entities"
)

type CreateSessionInput struct {
	Title              string               `json:"title" binding:"required"`
	Description        string               `json:"description"`
	Tags               []string             `json:"tags"`
	SessionType        constant.SessionType `json:"session_type"`
	ScheduledTime      time.Time            `json:"scheduled_time" binding:"required"`
	Duration           int                  `json:"duration"`
	MaxAttendees       int                  `json:"max_attendees"`
	IsRecordingEnabled bool                 `json:"is_recording_enabled"`
	IsPrivate          bool                 `json:"is_private"`
	Price              *float64             `json:"price"`
}

// UpdateSessionInput carries a partial update; nil fields are left untouched
// on the server.
type UpdateSessionInput struct {
	Title         *string               `json:"title"`
	Description   *string               `json:"description"`
	Tags          *[]string             `json:"tags"`
	SessionType   *constant.SessionType `json:"session_type"`
	ScheduledTime *time.Time            `json:"scheduled_time"`
	Duration      *int                  `json:"duration"`
	MaxAttendees  *int                  `json:"max_attendees"`
	IsPrivate     *bool                 `json:"is_private"`
	Price         *float64              `json:"price"`
}

type JoinResult struct {
	Session     *entities.Session `json:"session"`
	IsModerator bool              `json:"is_moderator"`
}

type UpdateStatusInput struct {
	Status constant.SessionStatus `json:"status" binding:"required"`
}

// SessionEvent is published to the event exchange after a successful mutation.
type SessionEvent struct {
	ID        string    `json:"id"`
	Event     string    `json:"event"`
	SessionID string    `json:"sessionId"`
	Principal string    `json:"principal"`
	At        time.Time `json:"at"`
}

// RecordingCompletedMessage arrives on the recording events queue when the
// recorder service finishes processing a recording.
type RecordingCompletedMessage struct {
	RecordingID string `json:"recordingId"`
	SessionID   string `json:"sessionId"`
}
