package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"session-gateway/dto"
	"session-gateway/pkg/recorder"
)

type fakeRecordings struct {
	info    *recorder.InfoResponse
	infoErr error
	data    []byte
}

func (f *fakeRecordings) Info(_ context.Context, _ string) (*recorder.InfoResponse, error) {
	return f.info, f.infoErr
}

func (f *fakeRecordings) Download(_ context.Context, _ string) (io.ReadCloser, int64, error) {
	return io.NopCloser(bytes.NewReader(f.data)), int64(len(f.data)), nil
}

type fakeStore struct {
	bucket string
	key    string
	body   []byte
	err    error
}

func (f *fakeStore) PutObject(_ context.Context, bucketName, objectName string, reader io.Reader, _ int64, _ minio.PutObjectOptions) (minio.UploadInfo, error) {
	if f.err != nil {
		return minio.UploadInfo{}, f.err
	}
	f.bucket = bucketName
	f.key = objectName
	f.body, _ = io.ReadAll(reader)
	return minio.UploadInfo{Bucket: bucketName, Key: objectName}, nil
}

func TestProcessRecordingCompletedArchives(t *testing.T) {
	recs := &fakeRecordings{
		info: &recorder.InfoResponse{
			RecordingID: "rec-1",
			SessionID:   "s-1",
			Status:      "completed",
			URL:         "http://recorder/files/rec-1",
			Format:      "webm",
		},
		data: []byte("recording-bytes"),
	}
	store := &fakeStore{}
	svc := NewArchiveService(recs, store, "archive")

	err := svc.ProcessRecordingCompleted(context.Background(), dto.RecordingCompletedMessage{
		RecordingID: "rec-1",
		SessionID:   "s-1",
	})

	require.NoError(t, err)
	assert.Equal(t, "archive", store.bucket)
	assert.Equal(t, "recordings/s-1/rec-1.webm", store.key)
	assert.Equal(t, []byte("recording-bytes"), store.body)
}

func TestProcessRecordingCompletedNotReadyIsRetryable(t *testing.T) {
	recs := &fakeRecordings{
		info: &recorder.InfoResponse{RecordingID: "rec-1", Status: "processing"},
	}
	svc := NewArchiveService(recs, &fakeStore{}, "archive")

	err := svc.ProcessRecordingCompleted(context.Background(), dto.RecordingCompletedMessage{RecordingID: "rec-1"})

	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNonRetryable)
	assert.Contains(t, err.Error(), "not ready")
}

func TestProcessRecordingCompletedFailedIsTerminal(t *testing.T) {
	recs := &fakeRecordings{
		info: &recorder.InfoResponse{RecordingID: "rec-1", Status: "failed"},
	}
	svc := NewArchiveService(recs, &fakeStore{}, "archive")

	err := svc.ProcessRecordingCompleted(context.Background(), dto.RecordingCompletedMessage{RecordingID: "rec-1"})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNonRetryable)
}

func TestProcessRecordingCompletedMissingID(t *testing.T) {
	svc := NewArchiveService(&fakeRecordings{}, &fakeStore{}, "archive")

	err := svc.ProcessRecordingCompleted(context.Background(), dto.RecordingCompletedMessage{})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNonRetryable)
}

func TestProcessRecordingCompletedInfoFailure(t *testing.T) {
	recs := &fakeRecordings{infoErr: errors.New("recorder unreachable")}
	svc := NewArchiveService(recs, &fakeStore{}, "archive")

	err := svc.ProcessRecordingCompleted(context.Background(), dto.RecordingCompletedMessage{RecordingID: "rec-1"})

	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNonRetryable)
	assert.Contains(t, err.Error(), "recorder unreachable")
}
