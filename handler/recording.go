package handler

import (
	"context"
	"encoding/json"
	"errors"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"session-gateway/dto"
	"session-gateway/service"
)

type ServiceDependencies struct {
	ArchiveService service.ArchiveService
}

// RecordingCompletedHandler archives a finished recording. Non-retryable
// failures are acknowledged so the message does not loop through the queue.
func RecordingCompletedHandler(ctx context.Context, msg amqp.Delivery, deps ServiceDependencies) error {
	var m dto.RecordingCompletedMessage
	if err := json.Unmarshal(msg.Body, &m); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("dropping malformed recording completed message")
		return nil
	}

	zerolog.Ctx(ctx).Info().
		Str("recording_id", m.RecordingID).
		Str("session_id", m.SessionID).
		Msg("received recording completed message")

	err := deps.ArchiveService.ProcessRecordingCompleted(ctx, m)
	if errors.Is(err, service.ErrNonRetryable) {
		zerolog.Ctx(ctx).Error().Err(err).Str("recording_id", m.RecordingID).Msg("dropping unrecoverable recording message")
		return nil
	}
	return err
}
