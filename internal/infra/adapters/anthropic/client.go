package anthropic

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"rss-digest/internal/domain/model"
	"rss-digest/internal/domain/ports/adapter"
)

// Compile-time assurance this adapter satisfies the port
var _ adapter.BatchClient = (*Client)(nil)

const (
	defaultBaseURL = "https://api.anthropic.com/v1"
	apiVersion     = "2023-06-01"
)

// Client implements adapter.BatchClient against the Message Batches API.
type Client struct {
	apiKey string
	base   string
	model  string
	client *http.Client
}

func New(apiKey, model, baseURL string) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("anthropic api key empty")
	}
	if model == "" {
		model = "claude-haiku-4-5"
	}
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		apiKey: apiKey,
		base:   baseURL,
		model:  model,
		client: &http.Client{Timeout: 60 * time.Second},
	}, nil
}

type messageParam struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type requestParams struct {
	Model     string         `json:"model"`
	MaxTokens int            `json:"max_tokens"`
	Messages  []messageParam `json:"messages"`
}

type batchRequest struct {
	CustomID string        `json:"custom_id"`
	Params   requestParams `json:"params"`
}

type requestCounts struct {
	Processing int `json:"processing"`
	Succeeded  int `json:"succeeded"`
	Errored    int `json:"errored"`
	Canceled   int `json:"canceled"`
	Expired    int `json:"expired"`
}

type batchEnvelope struct {
	ID               string        `json:"id"`
	ProcessingStatus string        `json:"processing_status"` // in_progress | canceling | ended
	RequestCounts    requestCounts `json:"request_counts"`
	ResultsURL       string        `json:"results_url"`
}

// CreateBatch submits the requests as one message batch and returns the
// provider's opaque batch id.
func (c *Client) CreateBatch(ctx context.Context, requests []adapter.BatchRequest) (string, error) {
	if len(requests) == 0 {
		return "", errors.New("empty batch request list")
	}
	reqs := make([]batchRequest, 0, len(requests))
	for _, r := range requests {
		reqs = append(reqs, batchRequest{
			CustomID: r.CustomID,
			Params: requestParams{
				Model:     c.model,
				MaxTokens: r.MaxTokens,
				Messages:  []messageParam{{Role: "user", Content: r.Prompt}},
			},
		})
	}
	body, _ := json.Marshal(struct {
		Requests []batchRequest `json:"requests"`
	}{Requests: reqs})

	var envelope batchEnvelope
	if err := c.do(ctx, http.MethodPost, "/messages/batches", bytes.NewReader(body), &envelope); err != nil {
		return "", err
	}
	if envelope.ID == "" {
		return "", errors.New("provider returned no batch id")
	}
	return envelope.ID, nil
}

// GetBatchStatus maps the provider's batch-level processing status plus
// its per-request counts onto the domain status taxonomy. A batch that
// ended with zero successes collapses to the failure kind its requests
// reported; partial successes stay "ended" and are resolved at retrieval.
func (c *Client) GetBatchStatus(ctx context.Context, batchID string) (model.BatchStatus, error) {
	var envelope batchEnvelope
	if err := c.do(ctx, http.MethodGet, "/messages/batches/"+batchID, nil, &envelope); err != nil {
		return "", err
	}
	switch envelope.ProcessingStatus {
	case "in_progress", "canceling":
		return model.BatchStatusInProgress, nil
	case "ended":
		counts := envelope.RequestCounts
		if counts.Succeeded == 0 {
			switch {
			case counts.Errored > 0:
				return model.BatchStatusErrored, nil
			case counts.Expired > 0:
				return model.BatchStatusExpired, nil
			case counts.Canceled > 0:
				return model.BatchStatusCanceled, nil
			}
		}
		return model.BatchStatusEnded, nil
	default:
		return "", fmt.Errorf("unknown processing status %q", envelope.ProcessingStatus)
	}
}

type resultLine struct {
	CustomID string `json:"custom_id"`
	Result   struct {
		Type    string `json:"type"` // succeeded | errored | canceled | expired
		Message struct {
			Content []struct {
				Type string `json:"type"`
				Text string `json:"text"`
			} `json:"content"`
		} `json:"message"`
	} `json:"result"`
}

// ListResults streams the batch's JSONL results and extracts the text
// content of each request.
func (c *Client) ListResults(ctx context.Context, batchID string) ([]adapter.BatchResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/messages/batches/"+batchID+"/results", nil)
	if err != nil {
		return nil, err
	}
	c.setHeaders(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, c.apiError(resp)
	}

	var results []adapter.BatchResult
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var rl resultLine
		if err := json.Unmarshal(line, &rl); err != nil {
			// One mangled line must not sink the whole retrieval.
			results = append(results, adapter.BatchResult{ErrorKind: "unparseable"})
			continue
		}
		res := adapter.BatchResult{CustomID: rl.CustomID}
		if rl.Result.Type == "succeeded" {
			res.Succeeded = true
			for _, block := range rl.Result.Message.Content {
				if block.Type == "text" {
					res.Text += block.Text
				}
			}
		} else {
			res.ErrorKind = rl.Result.Type
		}
		results = append(results, res)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading results stream: %w", err)
	}
	return results, nil
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return err
	}
	c.setHeaders(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return c.apiError(resp)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", apiVersion)
}

func (c *Client) apiError(resp *http.Response) error {
	var payload struct {
		Error struct {
			Type    string `json:"type"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&payload); err == nil && payload.Error.Message != "" {
		return fmt.Errorf("anthropic http %d: %s: %s", resp.StatusCode, payload.Error.Type, payload.Error.Message)
	}
	return fmt.Errorf("anthropic http %d", resp.StatusCode)
}
