package constant

type SessionStatus string

const (
	SessionStatusScheduled SessionStatus = "scheduled"
	SessionStatusLive      SessionStatus = "live"
	SessionStatusCompleted SessionStatus = "completed"
	SessionStatusCancelled SessionStatus = "cancelled"
	SessionStatusRecording SessionStatus = "recording"
)

func (s SessionStatus) String() string {
	return string(s)
}

type SessionType string

const (
	SessionTypeVideo       SessionType = "video"
	SessionTypeVoice       SessionType = "voice"
	SessionTypeScreenShare SessionType = "screen_share"
	SessionTypeWebinar     SessionType = "webinar"
)

func (t SessionType) String() string {
	return string(t)
}

type RecordingStatus string

const (
	RecordingStatusNotStarted RecordingStatus = "not_started"
	RecordingStatusRecording  RecordingStatus = "recording"
	RecordingStatusProcessing RecordingStatus = "processing"
	RecordingStatusCompleted  RecordingStatus = "completed"
	RecordingStatusFailed     RecordingStatus = "failed"
)

func (r RecordingStatus) String() string {
	return string(r)
}

type Environment string

const (
	EnvironmentProduction Environment = "production"
	EnvironmentStaging    Environment = "staging"
	EnvironmentDevelop    Environment = "develop"
)

func (e Environment) String() string {
	return string(e)
}
