// Package normalize converts untrusted wire records from the remote session
// service into canonical entities. The wire format encodes optional fields as
// zero-or-one-element arrays, tagged unions as single-key objects, and
// timestamps as 64-bit nanosecond integers that may arrive as numbers or
// strings. Structural absence is defaulted silently; numeric corruption is
// surfaced as a FieldError because it indicates a protocol mismatch.
package normalize

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"session-gateway/constant"
	"session-gateway/entities"
)

// FieldError reports a numeric or time field that could not be coerced.
type FieldError struct {
	Field string
	Value interface{}
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("cannot coerce field %q (value %v) to a 64-bit integer", e.Field, e.Value)
}

// Optional unwraps the wire encoding of optional values: a bare value is used
// as-is, a one-element array yields its element, and nil or an empty array
// means absent.
func Optional(v interface{}) (interface{}, bool) {
	switch t := v.(type) {
	case nil:
		return nil, false
	case []interface{}:
		if len(t) == 0 {
			return nil, false
		}
		return t[0], true
	default:
		return v, true
	}
}

// Record returns v as a raw record when it is object-shaped.
func Record(v interface{}) (map[string]interface{}, bool) {
	m, ok := v.(map[string]interface{})
	return m, ok
}

// Priority order for variant decoding; the first present key wins.
var sessionStatusKeys = []constant.SessionStatus{
	constant.SessionStatusScheduled,
	constant.SessionStatusLive,
	constant.SessionStatusCompleted,
	constant.SessionStatusCancelled,
	constant.SessionStatusRecording,
}

var sessionTypeKeys = []constant.SessionType{
	constant.SessionTypeVideo,
	constant.SessionTypeVoice,
	constant.SessionTypeScreenShare,
	constant.SessionTypeWebinar,
}

var recordingStatusKeys = []constant.RecordingStatus{
	constant.RecordingStatusNotStarted,
	constant.RecordingStatusRecording,
	constant.RecordingStatusProcessing,
	constant.RecordingStatusCompleted,
	constant.RecordingStatusFailed,
}

// StatusKey decodes a session status variant. It accepts both the single-key
// object encoding ({"live": null}) and an already-decoded bare string, and
// falls back to scheduled when no known key matches.
func StatusKey(v interface{}) constant.SessionStatus {
	if s, ok := v.(string); ok {
		for _, k := range sessionStatusKeys {
			if s == string(k) {
				return k
			}
		}
		return constant.SessionStatusScheduled
	}
	if m, ok := Record(v); ok {
		for _, k := range sessionStatusKeys {
			if _, present := m[string(k)]; present {
				return k
			}
		}
	}
	return constant.SessionStatusScheduled
}

// TypeKey decodes a session type variant, defaulting to video.
func TypeKey(v interface{}) constant.SessionType {
	if s, ok := v.(string); ok {
		for _, k := range sessionTypeKeys {
			if s == string(k) {
				return k
			}
		}
		return constant.SessionTypeVideo
	}
	if m, ok := Record(v); ok {
		for _, k := range sessionTypeKeys {
			if _, present := m[string(k)]; present {
				return k
			}
		}
	}
	return constant.SessionTypeVideo
}

// RecordingStatusKey decodes a recording status variant, defaulting to
// not_started.
func RecordingStatusKey(v interface{}) constant.RecordingStatus {
	if s, ok := v.(string); ok {
		for _, k := range recordingStatusKeys {
			if s == string(k) {
				return k
			}
		}
		return constant.RecordingStatusNotStarted
	}
	if m, ok := Record(v); ok {
		for _, k := range recordingStatusKeys {
			if _, present := m[string(k)]; present {
				return k
			}
		}
	}
	return constant.RecordingStatusNotStarted
}

// Principal converts a principal reference to its textual form. The wire may
// deliver a bare string or an opaque object carrying the text.
func Principal(v interface{}) string {
	switch p := v.(type) {
	case string:
		return p
	case map[string]interface{}:
		for _, key := range []string{"__principal__", "principal"} {
			if s, ok := p[key].(string); ok {
				return s
			}
		}
	}
	return ""
}

func int64Field(field string, v interface{}) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	case float64:
		return int64(n), nil
	case json.Number:
		if i, err := strconv.ParseInt(n.String(), 10, 64); err == nil {
			return i, nil
		}
		if f, err := strconv.ParseFloat(n.String(), 64); err == nil {
			return int64(f), nil
		}
		return 0, &FieldError{Field: field, Value: v}
	case string:
		if i, err := strconv.ParseInt(n, 10, 64); err == nil {
			return i, nil
		}
		if f, err := strconv.ParseFloat(n, 64); err == nil {
			return int64(f), nil
		}
		return 0, &FieldError{Field: field, Value: v}
	default:
		return 0, &FieldError{Field: field, Value: v}
	}
}

func intField(field string, v interface{}) (int, error) {
	i, err := int64Field(field, v)
	if err != nil {
		return 0, err
	}
	return int(i), nil
}

func nanosField(field string, v interface{}) (time.Time, error) {
	ns, err := int64Field(field, v)
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(0, ns).UTC(), nil
}

// field looks a key up and applies the optional-unwrap rule.
func field(raw map[string]interface{}, name string) (interface{}, bool) {
	v, ok := raw[name]
	if !ok {
		return nil, false
	}
	return Optional(v)
}

func stringField(raw map[string]interface{}, name string) string {
	v, ok := field(raw, name)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

func boolField(raw map[string]interface{}, name string, def bool) bool {
	v, ok := field(raw, name)
	if !ok {
		return def
	}
	b, ok := v.(bool)
	if !ok {
		return def
	}
	return b
}

func stringsField(raw map[string]interface{}, name string) []string {
	out := []string{}
	v, ok := raw[name]
	if !ok {
		return out
	}
	arr, ok := v.([]interface{})
	if !ok {
		return out
	}
	for _, item := range arr {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func principalsField(raw map[string]interface{}, name string) []string {
	out := []string{}
	arr, ok := raw[name].([]interface{})
	if !ok {
		return out
	}
	for _, item := range arr {
		if p := Principal(item); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func floatField(raw map[string]interface{}, name string) *float64 {
	v, ok := field(raw, name)
	if !ok {
		return nil
	}
	switch n := v.(type) {
	case float64:
		return &n
	case json.Number:
		if f, err := n.Float64(); err == nil {
			return &f
		}
	case string:
		if f, err := strconv.ParseFloat(n, 64); err == nil {
			return &f
		}
	}
	return nil
}

// Session maps a raw wire record to a canonical session. Missing or
// mis-shaped fields are defaulted; numeric and time coercion failures return
// a FieldError naming the offending field.
func Session(raw map[string]interface{}) (*entities.Session, error) {
	s := &entities.Session{
		Tags:        []string{},
		Attendees:   []string{},
		SessionType: constant.SessionTypeVideo,
		Status:      constant.SessionStatusScheduled,
	}

	s.ID = stringField(raw, "id")
	s.Title = stringField(raw, "title")
	s.Description = stringField(raw, "description")
	s.Tags = stringsField(raw, "tags")

	if v, ok := raw["sessionType"]; ok {
		s.SessionType = TypeKey(v)
	}
	if v, ok := raw["status"]; ok {
		s.Status = StatusKey(v)
	}

	if v, ok := field(raw, "scheduledTime"); ok {
		t, err := nanosField("scheduledTime", v)
		if err != nil {
			return nil, err
		}
		s.ScheduledTime = t
	}
	if v, ok := field(raw, "duration"); ok {
		d, err := intField("duration", v)
		if err != nil {
			return nil, err
		}
		s.Duration = d
	}
	if v, ok := field(raw, "maxAttendees"); ok {
		m, err := intField("maxAttendees", v)
		if err != nil {
			return nil, err
		}
		if m < 0 {
			m = 0
		}
		s.MaxAttendees = m
	}

	if v, ok := field(raw, "host"); ok {
		s.HostID = Principal(v)
	}
	s.HostName = stringField(raw, "hostName")
	s.HostAvatar = stringField(raw, "hostAvatar")

	s.Attendees = principalsField(raw, "attendees")
	s.ParticipantCount = len(s.Attendees)
	if v, ok := field(raw, "participantCount"); ok {
		c, err := intField("participantCount", v)
		if err != nil {
			return nil, err
		}
		s.ParticipantCount = c
	}

	s.IsRecordingEnabled = boolField(raw, "isRecordingEnabled", false)
	s.RecordingURL = stringField(raw, "recordingUrl")

	s.JitsiConfig = jitsiConfig(raw, s)

	if v, ok := field(raw, "createdAt"); ok {
		t, err := nanosField("createdAt", v)
		if err != nil {
			return nil, err
		}
		s.CreatedAt = t
	}
	if v, ok := field(raw, "updatedAt"); ok {
		t, err := nanosField("updatedAt", v)
		if err != nil {
			return nil, err
		}
		s.UpdatedAt = t
	}
	if v, ok := field(raw, "actualStartTime"); ok {
		t, err := nanosField("actualStartTime", v)
		if err != nil {
			return nil, err
		}
		s.ActualStartTime = &t
	}
	if v, ok := field(raw, "actualEndTime"); ok {
		t, err := nanosField("actualEndTime", v)
		if err != nil {
			return nil, err
		}
		s.ActualEndTime = &t
	}

	s.MeetingURL = stringField(raw, "meetingUrl")
	s.IsPrivate = boolField(raw, "isPrivate", false)
	s.Price = floatField(raw, "price")

	return s, nil
}

func jitsiConfig(raw map[string]interface{}, s *entities.Session) entities.JitsiConfig {
	cfg := entities.JitsiConfig{
		EnableChat:        true,
		EnableScreenShare: true,
	}

	v, ok := field(raw, "jitsiConfig")
	if ok {
		if m, isRecord := Record(v); isRecord {
			cfg.RoomName = stringField(m, "roomName")
			cfg.DisplayName = stringField(m, "displayName")
			cfg.StartWithAudioMuted = boolField(m, "startWithAudioMuted", false)
			cfg.StartWithVideoMuted = boolField(m, "startWithVideoMuted", false)
			cfg.EnableChat = boolField(m, "enableChat", true)
			cfg.EnableScreenShare = boolField(m, "enableScreenShare", true)
			if mp, present := field(m, "maxParticipants"); present {
				if n, err := intField("maxParticipants", mp); err == nil {
					cfg.MaxParticipants = &n
				}
			}
		}
	}

	if cfg.RoomName == "" && s.ID != "" {
		cfg.RoomName = "session-" + s.ID
	}
	if cfg.DisplayName == "" {
		cfg.DisplayName = s.HostName
	}
	return cfg
}

// RecordingInfo maps a raw recording record to its canonical form.
func RecordingInfo(raw map[string]interface{}) (*entities.RecordingInfo, error) {
	r := &entities.RecordingInfo{
		Status: constant.RecordingStatusNotStarted,
	}

	r.ID = stringField(raw, "id")
	r.SessionID = stringField(raw, "sessionId")
	if v, ok := raw["status"]; ok {
		r.Status = RecordingStatusKey(v)
	}

	if v, ok := field(raw, "startTime"); ok {
		t, err := nanosField("startTime", v)
		if err != nil {
			return nil, err
		}
		r.StartTime = t
	}
	if v, ok := field(raw, "endTime"); ok {
		t, err := nanosField("endTime", v)
		if err != nil {
			return nil, err
		}
		r.EndTime = t
	}
	if v, ok := field(raw, "duration"); ok {
		d, err := intField("duration", v)
		if err != nil {
			return nil, err
		}
		r.Duration = d
	}
	if v, ok := field(raw, "fileSize"); ok {
		size, err := int64Field("fileSize", v)
		if err != nil {
			return nil, err
		}
		r.FileSize = size
	}

	r.URL = stringField(raw, "url")
	r.ThumbnailURL = stringField(raw, "thumbnailUrl")
	r.Format = stringField(raw, "format")
	r.Quality = stringField(raw, "quality")

	return r, nil
}
