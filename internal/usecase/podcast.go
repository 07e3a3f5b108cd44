package usecase

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"rss-digest/internal/domain"
	"rss-digest/internal/domain/model"
	"rss-digest/internal/domain/ports/adapter"
	"rss-digest/internal/infra/logging"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
)

type PodcastConfig struct {
	SpeakerA      string
	SpeakerB      string
	VoiceA        string
	VoiceB        string
	MaxChunkChars int
}

// PodcastDispatcher turns a completed script batch into a published
// episode: parse speaker segments, chunk each utterance at sentence
// boundaries, synthesize chunk by chunk with the speaker's voice, and
// publish the concatenated audio.
type PodcastDispatcher struct {
	batches   adapter.BatchClient
	synth     adapter.SpeechSynthesizer
	publisher adapter.EpisodePublisher
	metrics   Metrics
	cfg       PodcastConfig
	log       *zerolog.Logger
}

func NewPodcastDispatcher(batches adapter.BatchClient, synth adapter.SpeechSynthesizer, publisher adapter.EpisodePublisher, m Metrics, cfg PodcastConfig, logger *zerolog.Logger) *PodcastDispatcher {
	l := logger.With().Str("component", "PodcastDispatcher").Logger()
	if m == nil {
		m = NopMetrics{}
	}
	if cfg.MaxChunkChars <= 0 {
		cfg.MaxChunkChars = 3000
	}
	if cfg.SpeakerA == "" {
		cfg.SpeakerA = "Marco"
	}
	if cfg.SpeakerB == "" {
		cfg.SpeakerB = "Joanna"
	}
	return &PodcastDispatcher{batches: batches, synth: synth, publisher: publisher, metrics: m, cfg: cfg, log: &l}
}

var _ Dispatcher = (*PodcastDispatcher)(nil)

func (d *PodcastDispatcher) RetrieveAndDispatch(ctx context.Context, run *model.BatchRun) error {
	log := logging.With(ctx, d.log)
	if !run.Ended() {
		// Degraded path for this branch is a clean skip: no episode.
		log.Warn().Str("status", string(run.WorstStatus())).Msg("batch not ended; skipping episode")
		return fmt.Errorf("%w: status %s", domain.ErrBatchFailed, run.WorstStatus())
	}

	script, err := d.retrieveScript(ctx, run)
	if err != nil {
		return err
	}
	log.Info().Int("script_chars", len(script)).Msg("retrieved podcast script")

	segments := model.ParseScript(script, d.cfg.SpeakerA, d.cfg.SpeakerB)
	if len(segments) == 0 {
		return fmt.Errorf("%w: script produced no dialogue segments", domain.ErrBatchFailed)
	}

	var audio bytes.Buffer
	for _, seg := range segments {
		voice := d.voiceFor(seg.Speaker)
		chunks := model.ChunkSentences(seg.Text, d.cfg.MaxChunkChars)
		for _, chunk := range chunks {
			if len(chunk) > d.cfg.MaxChunkChars {
				// Oversized single sentence: passed through anyway,
				// audio fidelity over strict limit compliance.
				log.Warn().Int("chars", len(chunk)).Str("speaker", seg.Speaker).Msg("oversized sentence chunk")
			}
			b, serr := d.synth.Synthesize(ctx, chunk, voice)
			if serr != nil {
				return fmt.Errorf("%w: synthesizing %s chunk: %v", domain.ErrDispatchFailed, seg.Speaker, serr)
			}
			audio.Write(b)
			d.metrics.SynthesisChunk(seg.Speaker)
		}
	}
	if audio.Len() == 0 {
		return fmt.Errorf("%w: no audio produced", domain.ErrDispatchFailed)
	}

	episode := &model.Episode{
		ID:          ulid.Make().String(),
		Title:       fmt.Sprintf("Daily Digest - %s", run.SubmittedAt.Format("2006-01-02")),
		Description: fmt.Sprintf("Tech news roundup for %s covering %d stories", run.SubmittedAt.Format("January 2, 2006"), len(run.Items)),
		AudioSize:   audio.Len(),
		PublishedAt: run.SubmittedAt,
	}
	url, err := d.publisher.Publish(ctx, episode, audio.Bytes())
	if err != nil {
		return fmt.Errorf("%w: publishing episode: %v", domain.ErrDispatchFailed, err)
	}

	d.metrics.AudioBytes(audio.Len())
	log.Info().
		Str("audio_url", url).
		Int("segments", len(segments)).
		Int("audio_bytes", audio.Len()).
		Msg("episode published")
	return nil
}

// retrieveScript pulls the single script request's output. The podcast
// run always degenerates to one job with one request.
func (d *PodcastDispatcher) retrieveScript(ctx context.Context, run *model.BatchRun) (string, error) {
	for i := range run.Jobs {
		results, err := d.batches.ListResults(ctx, run.Jobs[i].BatchID)
		if err != nil {
			return "", fmt.Errorf("%w: fetching results for %s: %v", domain.ErrDispatchFailed, run.Jobs[i].BatchID, err)
		}
		for _, res := range results {
			if res.Succeeded && strings.TrimSpace(res.Text) != "" {
				return res.Text, nil
			}
			d.log.Warn().Str("custom_id", res.CustomID).Str("kind", res.ErrorKind).Msg("script request failed inside completed batch")
		}
	}
	return "", fmt.Errorf("%w: no script in batch results", domain.ErrBatchFailed)
}

func (d *PodcastDispatcher) voiceFor(speaker string) string {
	if strings.EqualFold(speaker, d.cfg.SpeakerB) {
		return d.cfg.VoiceB
	}
	return d.cfg.VoiceA
}
