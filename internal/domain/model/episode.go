package model

import "time"

// Episode is one published podcast entry: metadata plus the location of
// the synthesized audio.
type Episode struct {
	ID          string
	Title       string
	Description string
	AudioURL    string
	AudioSize   int
	PublishedAt time.Time
}
