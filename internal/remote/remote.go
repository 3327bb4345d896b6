// Package remote talks to the profile/questionnaire record service. The
// service itself is an external collaborator; only its client lives here.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/calebmorris/wellbeat/internal/model"
	"github.com/calebmorris/wellbeat/internal/schedule"
)

// RecordStore is the async remote key-value record interface: questionnaire
// submissions go up, the baseline completion timestamp comes down.
type RecordStore interface {
	Get(ctx context.Context, userID, recordKey string) (map[string]any, error)
	Set(ctx context.Context, userID, recordKey string, fields map[string]any) error
}

// BaselineCheckFailurePolicy names what happens when the remote baseline
// due-check cannot be read: "suppress" reports the questionnaire as not
// needed and logs a warning. The source system behaved this way silently;
// the policy is explicit here so flipping it is a deliberate decision.
const BaselineCheckFailurePolicy = "suppress"

const baselineRecordKey = "baseline_questionnaire"

// Client is the HTTP implementation of RecordStore.
type Client struct {
	baseURL string
	client  *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Client) recordURL(userID, recordKey string) string {
	return fmt.Sprintf("%s/users/%s/records/%s",
		c.baseURL, url.PathEscape(userID), url.PathEscape(recordKey))
}

func (c *Client) Get(ctx context.Context, userID, recordKey string) (map[string]any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.recordURL(userID, recordKey), nil)
	if err != nil {
		return nil, fmt.Errorf("build record request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get record %q: %w", recordKey, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("record service returned %d for %q", resp.StatusCode, recordKey)
	}

	var fields map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&fields); err != nil {
		return nil, fmt.Errorf("decode record %q: %w", recordKey, err)
	}
	return fields, nil
}

func (c *Client) Set(ctx context.Context, userID, recordKey string, fields map[string]any) error {
	body, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("marshal record %q: %w", recordKey, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.recordURL(userID, recordKey), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build record request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("set record %q: %w", recordKey, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("record service returned %d for %q", resp.StatusCode, recordKey)
	}
	return nil
}

// NeedsBaseline reports whether the baseline questionnaire is due, reading
// the completion timestamp from the remote store so the check holds across
// devices. A read failure follows BaselineCheckFailurePolicy: the prompt is
// suppressed and the failure logged.
func NeedsBaseline(ctx context.Context, rs RecordStore, userID string, cfg *model.ScheduleConfig, now time.Time, logger *slog.Logger) bool {
	fields, err := rs.Get(ctx, userID, baselineRecordKey)
	if err != nil {
		logger.Warn("baseline due-check failed, suppressing prompt",
			"user_id", userID, "policy", BaselineCheckFailurePolicy, "error", err)
		return false
	}
	if fields == nil {
		// Never completed remotely: due now.
		return true
	}

	raw, ok := fields["completed_at"].(string)
	if !ok {
		return true
	}
	completedAt, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		logger.Warn("unparseable baseline completion timestamp, suppressing prompt",
			"user_id", userID, "policy", BaselineCheckFailurePolicy, "error", err)
		return false
	}

	due, err := schedule.NextDue(completedAt, cfg.EffectivePeriod(model.QuestionnaireBaseline),
		cfg.PreferredHour, cfg.PreferredMinute)
	if err != nil {
		logger.Warn("baseline due computation failed, suppressing prompt",
			"user_id", userID, "policy", BaselineCheckFailurePolicy, "error", err)
		return false
	}
	return !due.After(now)
}

// RecordCompletion uploads a questionnaire submission to the remote store.
func RecordCompletion(ctx context.Context, rs RecordStore, userID string, qt model.QuestionnaireType, completedAt time.Time, answers map[string]any) error {
	fields := map[string]any{
		"completed_at": completedAt.UTC().Format(time.RFC3339),
	}
	if len(answers) > 0 {
		fields["answers"] = answers
	}
	key := string(qt)
	if qt == model.QuestionnaireBaseline {
		key = baselineRecordKey
	}
	return rs.Set(ctx, userID, key, fields)
}
