//go:build !integration

// File: internal/usecase/mocks_test.go
package usecase_test

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"rss-digest/internal/domain"
	"rss-digest/internal/domain/model"
	"rss-digest/internal/domain/ports/adapter"

	"github.com/rs/zerolog"
)

// newTestLogger creates a silent zerolog.Logger for use in tests.
func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}

// --- Batch client ---

type fakeBatchClient struct {
	mu sync.Mutex

	CreateBatchFunc    func(ctx context.Context, reqs []adapter.BatchRequest) (string, error)
	GetBatchStatusFunc func(ctx context.Context, batchID string) (model.BatchStatus, error)
	ListResultsFunc    func(ctx context.Context, batchID string) ([]adapter.BatchResult, error)

	created [][]adapter.BatchRequest
	polls   int
}

func newFakeBatchClient() *fakeBatchClient {
	seq := 0
	f := &fakeBatchClient{}
	f.CreateBatchFunc = func(ctx context.Context, reqs []adapter.BatchRequest) (string, error) {
		seq++
		return fmt.Sprintf("batch-%d", seq), nil
	}
	f.GetBatchStatusFunc = func(ctx context.Context, batchID string) (model.BatchStatus, error) {
		return model.BatchStatusEnded, nil
	}
	f.ListResultsFunc = func(ctx context.Context, batchID string) ([]adapter.BatchResult, error) {
		return nil, nil
	}
	return f
}

func (f *fakeBatchClient) CreateBatch(ctx context.Context, reqs []adapter.BatchRequest) (string, error) {
	f.mu.Lock()
	f.created = append(f.created, reqs)
	f.mu.Unlock()
	return f.CreateBatchFunc(ctx, reqs)
}

func (f *fakeBatchClient) GetBatchStatus(ctx context.Context, batchID string) (model.BatchStatus, error) {
	f.mu.Lock()
	f.polls++
	f.mu.Unlock()
	return f.GetBatchStatusFunc(ctx, batchID)
}

func (f *fakeBatchClient) ListResults(ctx context.Context, batchID string) ([]adapter.BatchResult, error) {
	return f.ListResultsFunc(ctx, batchID)
}

func (f *fakeBatchClient) createdBatches() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.created)
}

// --- Feed source ---

type fakeFeedSource struct {
	mu    sync.Mutex
	items []model.Article
	err   error
	since time.Time
}

func (f *fakeFeedSource) ItemsSince(ctx context.Context, since time.Time) ([]model.Article, error) {
	f.mu.Lock()
	f.since = since
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.items, nil
}

func (f *fakeFeedSource) lastSince() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.since
}

// --- Watermark repository ---

type memWatermarkRepo struct {
	mu     sync.Mutex
	store  map[model.Workflow]time.Time
	getErr error
	setErr error
}

func newMemWatermarkRepo() *memWatermarkRepo {
	return &memWatermarkRepo{store: make(map[model.Workflow]time.Time)}
}

func (m *memWatermarkRepo) Get(ctx context.Context, workflow model.Workflow) (time.Time, error) {
	if m.getErr != nil {
		return time.Time{}, m.getErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	ts, ok := m.store[workflow]
	if !ok {
		return time.Time{}, domain.ErrNotFound
	}
	return ts, nil
}

func (m *memWatermarkRepo) Set(ctx context.Context, workflow model.Workflow, ts time.Time) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.store[workflow] = ts
	return nil
}

// --- Run lock ---

type fakeLocker struct {
	mu       sync.Mutex
	held     map[string]bool
	tryErr   error
	unlocked []string
}

func newFakeLocker() *fakeLocker {
	return &fakeLocker{held: make(map[string]bool)}
}

func (f *fakeLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.tryErr != nil {
		return "", f.tryErr
	}
	if f.held[key] {
		return "", domain.ErrRunInProgress
	}
	f.held[key] = true
	return "token-" + key, nil
}

func (f *fakeLocker) Unlock(ctx context.Context, key, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.held, key)
	f.unlocked = append(f.unlocked, key)
	return nil
}

// --- Delivery fakes ---

type fakeEmailSender struct {
	mu       sync.Mutex
	subjects []string
	bodies   []string
	err      error
}

func (f *fakeEmailSender) Send(ctx context.Context, subject, htmlBody string) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subjects = append(f.subjects, subject)
	f.bodies = append(f.bodies, htmlBody)
	return nil
}

func (f *fakeEmailSender) sent() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subjects)
}

type synthCall struct {
	text  string
	voice string
}

type fakeSynthesizer struct {
	calls []synthCall
	err   error
}

func (f *fakeSynthesizer) Synthesize(ctx context.Context, text, voiceID string) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.calls = append(f.calls, synthCall{text: text, voice: voiceID})
	return []byte(text), nil
}

type fakePublisher struct {
	episode *model.Episode
	audio   []byte
	err     error
}

func (f *fakePublisher) Publish(ctx context.Context, episode *model.Episode, audio []byte) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.episode = episode
	f.audio = audio
	return "https://cdn.example.com/episode.mp3", nil
}

type fakeAlerter struct {
	mu       sync.Mutex
	messages []string
}

func (f *fakeAlerter) Alert(ctx context.Context, workflow model.Workflow, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, string(workflow)+": "+message)
	return nil
}

func (f *fakeAlerter) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.messages)
}

// --- Metrics ---

// fakeMetrics records branch outcomes; every other observation is
// discarded.
type fakeMetrics struct {
	mu       sync.Mutex
	outcomes []string
}

func (f *fakeMetrics) BranchRun(workflow, outcome string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.outcomes = append(f.outcomes, outcome)
}

func (f *fakeMetrics) BranchDuration(string, float64)         {}
func (f *fakeMetrics) BatchJobsSubmitted(string, int)         {}
func (f *fakeMetrics) BatchPoll(string)                       {}
func (f *fakeMetrics) ArticlesDispatched(string, string, int) {}
func (f *fakeMetrics) SynthesisChunk(string)                  {}
func (f *fakeMetrics) AudioBytes(int)                         {}

func (f *fakeMetrics) lastOutcome() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.outcomes) == 0 {
		return ""
	}
	return f.outcomes[len(f.outcomes)-1]
}

// --- Clock ---

// fakeClock advances instantly on Sleep so poll loops run without real
// waiting.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(start time.Time) *fakeClock {
	return &fakeClock{now: start}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
	return nil
}
