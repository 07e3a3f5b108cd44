//go:build !integration

package anthropic

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"rss-digest/internal/domain/model"
	"rss-digest/internal/domain/ports/adapter"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := New("test-key", "test-model", srv.URL)
	if err != nil {
		t.Fatalf("building client: %v", err)
	}
	return c
}

func TestClient_CreateBatch(t *testing.T) {
	var gotBody struct {
		Requests []struct {
			CustomID string `json:"custom_id"`
			Params   struct {
				Model     string `json:"model"`
				MaxTokens int    `json:"max_tokens"`
				Messages  []struct {
					Role    string `json:"role"`
					Content string `json:"content"`
				} `json:"messages"`
			} `json:"params"`
		} `json:"requests"`
	}

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/messages/batches" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("x-api-key") != "test-key" {
			t.Error("missing api key header")
		}
		if r.Header.Get("anthropic-version") == "" {
			t.Error("missing version header")
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		_, _ = w.Write([]byte(`{"id":"msgbatch_abc","processing_status":"in_progress"}`))
	})

	id, err := c.CreateBatch(context.Background(), []adapter.BatchRequest{
		{CustomID: "email-group-0", Prompt: "categorize these", MaxTokens: 1024},
	})
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if id != "msgbatch_abc" {
		t.Errorf("batch id = %q", id)
	}
	if len(gotBody.Requests) != 1 {
		t.Fatalf("expected 1 request, got %d", len(gotBody.Requests))
	}
	req := gotBody.Requests[0]
	if req.CustomID != "email-group-0" || req.Params.Model != "test-model" || req.Params.MaxTokens != 1024 {
		t.Errorf("request payload mismatch: %+v", req)
	}
	if len(req.Params.Messages) != 1 || req.Params.Messages[0].Role != "user" {
		t.Errorf("messages mismatch: %+v", req.Params.Messages)
	}
}

func TestClient_GetBatchStatus(t *testing.T) {
	cases := []struct {
		name string
		body string
		want model.BatchStatus
	}{
		{"in progress", `{"id":"b","processing_status":"in_progress"}`, model.BatchStatusInProgress},
		{"canceling maps to in progress", `{"id":"b","processing_status":"canceling"}`, model.BatchStatusInProgress},
		{"ended with successes", `{"id":"b","processing_status":"ended","request_counts":{"succeeded":3,"errored":1}}`, model.BatchStatusEnded},
		{"ended all errored", `{"id":"b","processing_status":"ended","request_counts":{"errored":3}}`, model.BatchStatusErrored},
		{"ended all expired", `{"id":"b","processing_status":"ended","request_counts":{"expired":2}}`, model.BatchStatusExpired},
		{"ended all canceled", `{"id":"b","processing_status":"ended","request_counts":{"canceled":2}}`, model.BatchStatusCanceled},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tc.body))
			})
			got, err := c.GetBatchStatus(context.Background(), "b")
			if err != nil {
				t.Fatalf("expected no error, got: %v", err)
			}
			if got != tc.want {
				t.Errorf("status = %s, want %s", got, tc.want)
			}
		})
	}

	t.Run("unknown status is an error", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"id":"b","processing_status":"paused"}`))
		})
		if _, err := c.GetBatchStatus(context.Background(), "b"); err == nil {
			t.Fatal("expected an error for an unknown status")
		}
	})
}

func TestClient_ListResults(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/messages/batches/b1/results" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		fmt.Fprintln(w, `{"custom_id":"email-group-0","result":{"type":"succeeded","message":{"content":[{"type":"text","text":"part one "},{"type":"text","text":"part two"}]}}}`)
		fmt.Fprintln(w, `{"custom_id":"email-group-1","result":{"type":"errored"}}`)
		fmt.Fprintln(w, "")
	})

	results, err := c.ListResults(context.Background(), "b1")
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if !results[0].Succeeded || results[0].Text != "part one part two" {
		t.Errorf("result 0 = %+v", results[0])
	}
	if results[1].Succeeded || results[1].ErrorKind != "errored" {
		t.Errorf("result 1 = %+v", results[1])
	}
}

func TestClient_APIError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"type":"rate_limit_error","message":"slow down"}}`))
	})
	if _, err := c.CreateBatch(context.Background(), []adapter.BatchRequest{{CustomID: "x", Prompt: "p"}}); err == nil {
		t.Fatal("expected an error from a 429 response")
	}
}
