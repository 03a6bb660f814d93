package entities

import (
	"time"

	"session-gateway/constant"
)

type RecordingInfo struct {
	ID           string                   `json:"id"`
	SessionID    string                   `json:"session_id"`
	Status       constant.RecordingStatus `json:"status"`
	StartTime    time.Time                `json:"start_time"`
	EndTime      time.Time                `json:"end_time"`
	Duration     int                      `json:"duration"`
	URL          string                   `json:"url"`
	ThumbnailURL string                   `json:"thumbnail_url"`
	FileSize     int64                    `json:"file_size"`
	Format       string                   `json:"format"`
	Quality      string                   `json:"quality"`
}
