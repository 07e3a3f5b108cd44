// File: internal/domain/ports/adapter/delivery.go
package adapter

import (
	"context"

	"rss-digest/internal/domain/model"
)

// EmailSender delivers the assembled digest. Failure keeps the watermark
// untouched so the content is recomputed on the next run.
type EmailSender interface {
	Send(ctx context.Context, subject, htmlBody string) error
}

// SpeechSynthesizer converts one text chunk to audio with the given
// voice. The caller guarantees the chunk respects the provider limit.
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, text, voiceID string) ([]byte, error)
}

// EpisodePublisher uploads the episode audio and updates the podcast
// feed, returning the public audio URL.
type EpisodePublisher interface {
	Publish(ctx context.Context, episode *model.Episode, audio []byte) (string, error)
}

// Alerter reports branch failures to an external channel. Alerting
// failures are logged and swallowed; they never fail a branch.
type Alerter interface {
	Alert(ctx context.Context, workflow model.Workflow, message string) error
}
