package publish

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/rs/zerolog"

	"rss-digest/internal/domain/model"
	"rss-digest/internal/domain/ports/adapter"
)

var _ adapter.EpisodePublisher = (*S3Publisher)(nil)

const (
	episodePrefix = "podcasts/episodes/"
	feedKey       = "podcasts/feed.xml"
	maxFeedItems  = 10
	itunesNS      = "http://www.itunes.com/dtds/podcast-1.0.dtd"
	feedAuthor    = "Daily Tech Digest"
)

// S3Publisher uploads episode audio and maintains the podcast RSS feed
// alongside it. The feed keeps a sliding window of the newest episodes.
type S3Publisher struct {
	client    *s3.Client
	bucket    string
	cdnDomain string
	log       zerolog.Logger
}

func NewS3Publisher(client *s3.Client, bucket, cdnDomain string, log zerolog.Logger) *S3Publisher {
	return &S3Publisher{
		client:    client,
		bucket:    bucket,
		cdnDomain: cdnDomain,
		log:       log.With().Str("component", "episode-publisher").Logger(),
	}
}

func (p *S3Publisher) Publish(ctx context.Context, episode *model.Episode, audio []byte) (string, error) {
	key := fmt.Sprintf("%srss-digest-%s.mp3", episodePrefix, episode.PublishedAt.UTC().Format("20060102-150405"))

	_, err := p.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(p.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(audio),
		ContentType: aws.String("audio/mpeg"),
	})
	if err != nil {
		return "", fmt.Errorf("upload episode audio: %w", err)
	}

	episode.AudioURL = p.objectURL(key)
	episode.AudioSize = len(audio)

	if err := p.updateFeed(ctx, episode); err != nil {
		return "", fmt.Errorf("update podcast feed: %w", err)
	}

	p.log.Info().
		Str("key", key).
		Str("url", episode.AudioURL).
		Int("bytes", episode.AudioSize).
		Msg("episode published")
	return episode.AudioURL, nil
}

func (p *S3Publisher) objectURL(key string) string {
	if p.cdnDomain != "" {
		return fmt.Sprintf("https://%s/%s", p.cdnDomain, key)
	}
	return fmt.Sprintf("https://%s.s3.amazonaws.com/%s", p.bucket, key)
}

type rssEnclosure struct {
	URL    string `xml:"url,attr"`
	Length int64  `xml:"length,attr"`
	Type   string `xml:"type,attr"`
}

type rssItem struct {
	Title       string       `xml:"title"`
	Description string       `xml:"description"`
	PubDate     string       `xml:"pubDate"`
	GUID        string       `xml:"guid"`
	Enclosure   rssEnclosure `xml:"enclosure"`
}

type rssChannel struct {
	Title          string    `xml:"title"`
	Link           string    `xml:"link"`
	Description    string    `xml:"description"`
	Language       string    `xml:"language"`
	ItunesAuthor   string    `xml:"itunes:author"`
	ItunesExplicit string    `xml:"itunes:explicit"`
	Items          []rssItem `xml:"item"`
}

type rssDoc struct {
	XMLName  xml.Name   `xml:"rss"`
	Version  string     `xml:"version,attr"`
	ItunesNS string     `xml:"xmlns:itunes,attr"`
	Channel  rssChannel `xml:"channel"`
}

func (p *S3Publisher) updateFeed(ctx context.Context, episode *model.Episode) error {
	doc, err := p.loadFeed(ctx)
	if err != nil {
		return err
	}

	item := rssItem{
		Title:       episode.Title,
		Description: episode.Description,
		PubDate:     episode.PublishedAt.UTC().Format(time.RFC1123Z),
		GUID:        episode.ID,
		Enclosure: rssEnclosure{
			URL:    episode.AudioURL,
			Length: int64(episode.AudioSize),
			Type:   "audio/mpeg",
		},
	}
	doc.Channel.Items = append([]rssItem{item}, doc.Channel.Items...)
	if len(doc.Channel.Items) > maxFeedItems {
		doc.Channel.Items = doc.Channel.Items[:maxFeedItems]
	}
	// Re-parsed feeds lose namespaced fields; reassert them on every write.
	doc.ItunesNS = itunesNS
	if doc.Channel.ItunesAuthor == "" {
		doc.Channel.ItunesAuthor = feedAuthor
	}
	if doc.Channel.ItunesExplicit == "" {
		doc.Channel.ItunesExplicit = "false"
	}

	body, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal feed: %w", err)
	}
	payload := append([]byte(xml.Header), body...)

	_, err = p.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(p.bucket),
		Key:         aws.String(feedKey),
		Body:        bytes.NewReader(payload),
		ContentType: aws.String("application/rss+xml"),
	})
	if err != nil {
		return fmt.Errorf("upload feed: %w", err)
	}
	return nil
}

// loadFeed pulls the current feed document, or seeds a fresh channel
// when none exists yet.
func (p *S3Publisher) loadFeed(ctx context.Context) (*rssDoc, error) {
	out, err := p.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(feedKey),
	})
	if err != nil {
		var noKey *s3types.NoSuchKey
		if errors.As(err, &noKey) {
			return p.newFeed(), nil
		}
		return nil, fmt.Errorf("fetch feed: %w", err)
	}
	defer out.Body.Close()

	raw, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read feed: %w", err)
	}
	var doc rssDoc
	if err := xml.Unmarshal(raw, &doc); err != nil {
		p.log.Warn().Err(err).Msg("existing feed unparseable, rebuilding")
		return p.newFeed(), nil
	}
	doc.Version = "2.0"
	return &doc, nil
}

func (p *S3Publisher) newFeed() *rssDoc {
	return &rssDoc{
		Version:  "2.0",
		ItunesNS: itunesNS,
		Channel: rssChannel{
			Title:          "Daily Tech Digest",
			Link:           p.objectURL(feedKey),
			Description:    "Daily roundup of tech news, generated from aggregated RSS articles.",
			Language:       "en-us",
			ItunesAuthor:   feedAuthor,
			ItunesExplicit: "false",
		},
	}
}
