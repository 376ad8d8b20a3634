package api

import (
	"context"
	"net/url"
	"time"
)

// DeviceStats is the anonymous per-device view of XP and rank
type DeviceStats struct {
	XP          int    `json:"xp"`
	Rank        string `json:"rank"`
	NextRank    string `json:"next_rank"`
	NextRankXP  int    `json:"next_rank_xp"`
	StreakDays  int    `json:"streak_days"`
	LabsSolved  int    `json:"labs_solved"`
	LabsStarted int    `json:"labs_started"`
}

// ProgressRow is one lab's progress as reported by the authority
type ProgressRow struct {
	StartedAt string `json:"started_at"`
	SolvedAt  string `json:"solved_at"`
	Attempts  int    `json:"attempts"`
	Notes     string `json:"notes"`
}

// Summary aggregates progress across labs
type Summary struct {
	Started  int `json:"started"`
	Solved   int `json:"solved"`
	Attempts int `json:"attempts"`
}

// RecentRow is one entry of the recent-activity feed
type RecentRow struct {
	LabID     string `json:"lab_id"`
	StartedAt string `json:"started_at"`
	SolvedAt  string `json:"solved_at"`
	Attempts  int    `json:"attempts"`
}

// ProgressBlob is the full device progress payload
type ProgressBlob struct {
	Progress map[string]ProgressRow `json:"progress"`
	Summary  Summary                `json:"summary"`
	Recent   []RecentRow            `json:"recent"`
}

// SubmitResult is the authority's verdict on a flag submission
type SubmitResult struct {
	OK     bool   `json:"ok"`
	Error  string `json:"error"`
	Detail string `json:"detail"`
}

// Event is one fire-and-forget telemetry event
type Event struct {
	DeviceID  string            `json:"device_id"`
	Event     string            `json:"event"`
	Timestamp int64             `json:"timestamp"`
	Props     map[string]string `json:"props"`
}

// DeviceStats fetches the anonymous stats for a device
func (c *Client) DeviceStats(ctx context.Context, deviceID string) (*DeviceStats, error) {
	var out DeviceStats
	path := "/v1/stats/device/" + url.PathEscape(deviceID)
	if err := c.getWithRetries(ctx, path, false, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeviceProgress fetches the full progress blob for a device
func (c *Client) DeviceProgress(ctx context.Context, deviceID string) (*ProgressBlob, error) {
	var out ProgressBlob
	path := "/v1/progress/device/" + url.PathEscape(deviceID)
	if err := c.getWithRetries(ctx, path, false, &out); err != nil {
		return nil, err
	}
	if out.Progress == nil {
		out.Progress = map[string]ProgressRow{}
	}
	return &out, nil
}

// Notes fetches one lab's notes for a device
func (c *Client) Notes(ctx context.Context, deviceID, labID string) (string, error) {
	var out struct {
		Notes string `json:"notes"`
	}
	path := "/v1/notes/device/" + url.PathEscape(deviceID) + "/" + url.PathEscape(labID)
	if err := c.get(ctx, path, false, &out); err != nil {
		return "", err
	}
	return out.Notes, nil
}

// SetNotes replaces one lab's notes for a device
func (c *Client) SetNotes(ctx context.Context, deviceID, labID, notes string) error {
	path := "/v1/notes/device/" + url.PathEscape(deviceID) + "/" + url.PathEscape(labID)
	return c.post(ctx, path, false, map[string]string{"notes": notes}, nil)
}

// SubmitFlag submits a flag for server-side verification
func (c *Client) SubmitFlag(ctx context.Context, deviceID, labID, flag string) (*SubmitResult, error) {
	payload := map[string]string{
		"device_id":   deviceID,
		"lab_id":      labID,
		"flag":        flag,
		"app_version": Version,
	}
	var out SubmitResult
	if err := c.post(ctx, "/v1/labs/submit-flag", false, payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SendEvent posts one telemetry event. Callers treat failures as
// non-fatal; the wrapper in the telemetry package never surfaces them.
func (c *Client) SendEvent(ctx context.Context, deviceID, name string, props map[string]string) error {
	if props == nil {
		props = map[string]string{}
	}
	props["app_version"] = Version
	evt := Event{
		DeviceID:  deviceID,
		Event:     name,
		Timestamp: time.Now().Unix(),
		Props:     props,
	}
	return c.post(ctx, "/v1/telemetry", false, evt, nil)
}
