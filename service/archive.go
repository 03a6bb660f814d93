package service

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/rs/zerolog"

	"session-gateway/constant"
	"session-gateway/dto"
	"session-gateway/pkg/recorder"
)

// RecordingSource reads finished recordings back from the recorder service.
type RecordingSource interface {
	Info(ctx context.Context, recordingID string) (*recorder.InfoResponse, error)
	Download(ctx context.Context, url string) (io.ReadCloser, int64, error)
}

// ObjectStore is the subset of the storage client the archiver needs.
type ObjectStore interface {
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// ArchiveService copies completed recordings into long-term object storage.
type ArchiveService interface {
	ProcessRecordingCompleted(ctx context.Context, msg dto.RecordingCompletedMessage) error
}

type archiveService struct {
	recordings RecordingSource
	storage    ObjectStore
	bucket     string
}

func NewArchiveService(recordings RecordingSource, storage ObjectStore, bucket string) ArchiveService {
	return &archiveService{
		recordings: recordings,
		storage:    storage,
		bucket:     bucket,
	}
}

// ProcessRecordingCompleted archives one recording. Errors joined with
// ErrNonRetryable indicate the message must not be redelivered.
func (s *archiveService) ProcessRecordingCompleted(ctx context.Context, msg dto.RecordingCompletedMessage) error {
	if msg.RecordingID == "" {
		return errors.Join(ErrNonRetryable, fmt.Errorf("recording completed message missing recording id"))
	}

	info, err := s.recordings.Info(ctx, msg.RecordingID)
	if err != nil {
		return fmt.Errorf("failed to fetch recording info: %w", err)
	}

	switch info.Status {
	case constant.RecordingStatusFailed.String():
		return errors.Join(ErrNonRetryable, fmt.Errorf("recording %s failed on the recorder side", msg.RecordingID))
	case constant.RecordingStatusCompleted.String():
	default:
		return fmt.Errorf("recording %s is not ready yet (status %s)", msg.RecordingID, info.Status)
	}

	if info.URL == "" {
		return errors.Join(ErrNonRetryable, fmt.Errorf("recording %s completed without a download url", msg.RecordingID))
	}

	body, size, err := s.recordings.Download(ctx, info.URL)
	if err != nil {
		return fmt.Errorf("failed to download recording %s: %w", msg.RecordingID, err)
	}
	defer body.Close()

	sessionID := msg.SessionID
	if sessionID == "" {
		sessionID = info.SessionID
	}
	format := info.Format
	if format == "" {
		format = "mp4"
	}
	key := fmt.Sprintf("recordings/%s/%s.%s", sessionID, msg.RecordingID, format)

	_, err = s.storage.PutObject(ctx, s.bucket, key, body, size, minio.PutObjectOptions{
		ContentType: "video/" + format,
	})
	if err != nil {
		return fmt.Errorf("failed to archive recording %s: %w", msg.RecordingID, err)
	}

	zerolog.Ctx(ctx).Info().
		Str("recording_id", msg.RecordingID).
		Str("session_id", sessionID).
		Str("object_key", key).
		Int64("size", size).
		Msg("recording archived")
	return nil
}
