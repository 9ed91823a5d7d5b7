package trigger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"genvid/internal/queue"
)

type webhookRequest struct {
	JobID  int64    `json:"job_id"`
	Prompt string   `json:"prompt"`
	Args   []string `json:"args"`
}

// WebhookTrigger asks a compute platform to start the worker by POSTing the
// job and its command line. Any 2xx response means accepted.
type WebhookTrigger struct {
	url    string
	token  string
	client *http.Client
}

// NewWebhookTrigger creates a trigger. A nil client gets a 15s timeout.
func NewWebhookTrigger(url, token string, client *http.Client) *WebhookTrigger {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &WebhookTrigger{url: url, token: token, client: client}
}

func (t *WebhookTrigger) Trigger(ctx context.Context, msg queue.Message) error {
	body, err := json.Marshal(webhookRequest{JobID: msg.JobID, Prompt: msg.Prompt, Args: WorkerArgs(msg)})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if t.token != "" {
		req.Header.Set("Authorization", "Bearer "+t.token)
	}
	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("trigger job %d: %w", msg.JobID, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("trigger job %d: status %d: %s", msg.JobID, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

var _ Trigger = (*WebhookTrigger)(nil)
