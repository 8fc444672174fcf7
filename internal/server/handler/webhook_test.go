package handler

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sevigo/ci-warden/internal/core"
)

const pushPayload = `{
  "ref": "refs/heads/feature/login",
  "after": "0123456789abcdef0123456789abcdef01234567",
  "deleted": false,
  "head_commit": {"id": "0123456789abcdef0123456789abcdef01234567"},
  "repository": {"name": "demo", "full_name": "octo/demo", "owner": {"login": "octo"}}
}`

type fakeDispatcher struct {
	mu   sync.Mutex
	reqs []*core.JobRequest
	err  error
}

func (f *fakeDispatcher) Submit(_ context.Context, req *core.JobRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.reqs = append(f.reqs, req)
	return nil
}

func newWebhookRequest(event, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhook/github", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-GitHub-Event", event)
	return req
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestWebhookHandler_PushQueuesBuild(t *testing.T) {
	d := &fakeDispatcher{}
	h := NewWebhookHandler("", d, testLogger())

	rec := httptest.NewRecorder()
	h.Handle(rec, newWebhookRequest("push", pushPayload))

	assert.Equal(t, http.StatusAccepted, rec.Code)
	require.Len(t, d.reqs, 1)
	assert.Equal(t, &core.JobRequest{
		RepoOwner:  "octo",
		RepoName:   "demo",
		CommitSHA:  "0123456789abcdef0123456789abcdef01234567",
		BranchName: "feature/login",
	}, d.reqs[0])
}

func TestWebhookHandler_Responses(t *testing.T) {
	tests := []struct {
		name       string
		event      string
		body       string
		submitErr  error
		wantCode   int
		wantBody   string
		wantQueued bool
	}{
		{name: "ping", event: "ping", body: `{"zen":"hi","hook_id":1}`, wantCode: http.StatusOK},
		{name: "unhandled event", event: "issues", body: `{"action":"opened"}`, wantCode: http.StatusOK},
		{name: "unknown event type", event: "some_future_event", body: `{}`, wantCode: http.StatusOK, wantBody: "Event type not handled"},
		{name: "missing event header", event: "", body: `{}`, wantCode: http.StatusOK, wantBody: "Event type not handled"},
		{name: "tag push ignored", event: "push", body: strings.Replace(pushPayload, "refs/heads/feature/login", "refs/tags/v1.0.0", 1), wantCode: http.StatusOK},
		{name: "branch deletion ignored", event: "push", body: strings.Replace(pushPayload, `"deleted": false`, `"deleted": true`, 1), wantCode: http.StatusOK},
		{name: "missing commit", event: "push", body: `{"ref":"refs/heads/main","repository":{"name":"demo","owner":{"login":"octo"}}}`, wantCode: http.StatusBadRequest},
		{name: "missing repository", event: "push", body: `{"ref":"refs/heads/main","after":"0123456789abcdef0123456789abcdef01234567"}`, wantCode: http.StatusBadRequest},
		{name: "invalid json", event: "push", body: `{not json`, wantCode: http.StatusBadRequest},
		{name: "queue full", event: "push", body: pushPayload, submitErr: core.ErrQueueFull, wantCode: http.StatusServiceUnavailable},
		{name: "dispatcher stopped", event: "push", body: pushPayload, submitErr: core.ErrDispatcherStopped, wantCode: http.StatusServiceUnavailable},
		{name: "duplicate", event: "push", body: pushPayload, submitErr: core.ErrDuplicateJob, wantCode: http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &fakeDispatcher{err: tt.submitErr}
			h := NewWebhookHandler("", d, testLogger())

			rec := httptest.NewRecorder()
			h.Handle(rec, newWebhookRequest(tt.event, tt.body))

			assert.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
			if tt.wantBody != "" {
				assert.Equal(t, tt.wantBody, rec.Body.String())
			}
			assert.Empty(t, d.reqs)
		})
	}
}

func TestWebhookHandler_Signature(t *testing.T) {
	const secret = "s3cret"
	d := &fakeDispatcher{}
	h := NewWebhookHandler(secret, d, testLogger())

	rec := httptest.NewRecorder()
	h.Handle(rec, newWebhookRequest("push", pushPayload))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(pushPayload))
	req := newWebhookRequest("push", pushPayload)
	req.Header.Set("X-Hub-Signature-256", "sha256="+hex.EncodeToString(mac.Sum(nil)))

	rec = httptest.NewRecorder()
	h.Handle(rec, req)
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Len(t, d.reqs, 1)
}
