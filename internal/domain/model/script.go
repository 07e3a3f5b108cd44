package model

import (
	"regexp"
	"strings"
)

// DialogueSegment is one ordered (speaker, utterance) pair parsed from a
// two-host script. Segment order matches the script's line order; that
// ordering is what gives the synthesized audio its conversational flow.
type DialogueSegment struct {
	Speaker string
	Text    string
}

// ParseScript splits a raw two-speaker script into ordered segments.
// A speaker label is the speaker's name followed by a colon at the start
// of a line, matched case-insensitively. Lines without a label continue
// the current segment, keeping their original line break. A script with
// no recognizable labels yields a single segment attributed to speakerA.
func ParseScript(script, speakerA, speakerB string) []DialogueSegment {
	var segments []DialogueSegment
	current := speakerA
	var lines []string

	flush := func() {
		if len(lines) > 0 {
			segments = append(segments, DialogueSegment{Speaker: current, Text: strings.Join(lines, "\n")})
			lines = nil
		}
	}

	for _, raw := range strings.Split(script, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		if rest, ok := matchSpeakerLabel(line, speakerA); ok {
			flush()
			current = speakerA
			if rest != "" {
				lines = append(lines, rest)
			}
			continue
		}
		if rest, ok := matchSpeakerLabel(line, speakerB); ok {
			flush()
			current = speakerB
			if rest != "" {
				lines = append(lines, rest)
			}
			continue
		}
		lines = append(lines, line)
	}
	flush()
	return segments
}

func matchSpeakerLabel(line, speaker string) (rest string, ok bool) {
	prefix := speaker + ":"
	if len(line) < len(prefix) || !strings.EqualFold(line[:len(prefix)], prefix) {
		return "", false
	}
	return strings.TrimSpace(line[len(prefix):]), true
}

// sentenceBoundary matches terminal punctuation plus the whitespace that
// follows it. The separator stays attached to its sentence so the chunks
// concatenate back to the original text without loss.
var sentenceBoundary = regexp.MustCompile(`[.!?]+\s+`)

// ChunkSentences splits text into pieces of at most maxChars characters,
// breaking only at sentence boundaries. Concatenating the returned chunks
// in order reproduces text exactly. A single sentence longer than maxChars
// is not split further; it is emitted as its own oversized chunk and the
// caller decides whether to pass it through (audio fidelity is preferred
// over strict limit compliance in that rare case).
func ChunkSentences(text string, maxChars int) []string {
	if text == "" {
		return nil
	}
	if maxChars <= 0 || len(text) <= maxChars {
		return []string{text}
	}

	var chunks []string
	var current strings.Builder
	for _, sentence := range splitSentences(text) {
		if current.Len() > 0 && current.Len()+len(sentence) > maxChars {
			chunks = append(chunks, current.String())
			current.Reset()
		}
		current.WriteString(sentence)
	}
	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}
	return chunks
}

// splitSentences partitions text into sentences with their trailing
// separators attached. The pieces always concatenate back to text.
func splitSentences(text string) []string {
	var sentences []string
	prev := 0
	for _, loc := range sentenceBoundary.FindAllStringIndex(text, -1) {
		sentences = append(sentences, text[prev:loc[1]])
		prev = loc[1]
	}
	if prev < len(text) {
		sentences = append(sentences, text[prev:])
	}
	return sentences
}
