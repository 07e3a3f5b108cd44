package speech

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/service/polly"
	pollytypes "github.com/aws/aws-sdk-go-v2/service/polly/types"

	"rss-digest/internal/domain/ports/adapter"
)

var _ adapter.SpeechSynthesizer = (*PollySynthesizer)(nil)

// PollySynthesizer renders plain text to MP3 with the neural engine.
// Callers must keep each text under the engine's per-request character
// limit; Polly rejects oversized input outright.
type PollySynthesizer struct {
	client *polly.Client
}

func NewPollySynthesizer(client *polly.Client) *PollySynthesizer {
	return &PollySynthesizer{client: client}
}

func (p *PollySynthesizer) Synthesize(ctx context.Context, text, voiceID string) ([]byte, error) {
	out, err := p.client.SynthesizeSpeech(ctx, &polly.SynthesizeSpeechInput{
		Text:         &text,
		OutputFormat: pollytypes.OutputFormatMp3,
		VoiceId:      pollytypes.VoiceId(voiceID),
		Engine:       pollytypes.EngineNeural,
		TextType:     pollytypes.TextTypeText,
	})
	if err != nil {
		return nil, fmt.Errorf("synthesize speech (voice %s): %w", voiceID, err)
	}
	defer out.AudioStream.Close()

	audio, err := io.ReadAll(out.AudioStream)
	if err != nil {
		return nil, fmt.Errorf("read audio stream: %w", err)
	}
	return audio, nil
}
