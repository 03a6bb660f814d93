package entities

import (
	"time"

	"session-gateway/constant"
)

// Session is the canonical session shape returned to callers. Every field is
// populated with a defined default when the remote record omits or mis-shapes
// it; callers never see a partially-typed session.
type Session struct {
	ID          string               `json:"id"`
	Title       string               `json:"title"`
	Description string               `json:"description"`
	Tags        []string             `json:"tags"`
	SessionType constant.SessionType `json:"session_type"`

	ScheduledTime time.Time `json:"scheduled_time"`
	Duration      int       `json:"duration"`
	MaxAttendees  int       `json:"max_attendees"`

	HostID     string `json:"host_id"`
	HostName   string `json:"host_name"`
	HostAvatar string `json:"host_avatar"`

	Status constant.SessionStatus `json:"status"`

	Attendees        []string `json:"attendees"`
	ParticipantCount int      `json:"participant_count"`

	IsRecordingEnabled bool        `json:"is_recording_enabled"`
	RecordingURL       string      `json:"recording_url"`
	JitsiConfig        JitsiConfig `json:"jitsi_config"`

	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	ActualStartTime *time.Time `json:"actual_start_time,omitempty"`
	ActualEndTime   *time.Time `json:"actual_end_time,omitempty"`

	// Best-effort mirrors of server state, not authoritative.
	MeetingURL string   `json:"meeting_url"`
	IsPrivate  bool     `json:"is_private"`
	Price      *float64 `json:"price,omitempty"`
}

// JitsiConfig carries the conference room settings embedded in a session.
type JitsiConfig struct {
	RoomName            string `json:"room_name"`
	DisplayName         string `json:"display_name"`
	StartWithAudioMuted bool   `json:"start_with_audio_muted"`
	StartWithVideoMuted bool   `json:"start_with_video_muted"`
	EnableChat          bool   `json:"enable_chat"`
	EnableScreenShare   bool   `json:"enable_screen_share"`
	MaxParticipants     *int   `json:"max_participants,omitempty"`
}
