package model

import "time"

// SyncError records one per-item failure inside a sync run.
type SyncError struct {
	VideoID string `json:"video_id,omitempty"`
	Stage   string `json:"stage"` // profile | page_fetch | parse | upsert
	Message string `json:"message"`
}

// SyncRun is the result of one Sync Engine invocation. It is returned to the
// caller and, when auditing is configured, copied to the audit store.
type SyncRun struct {
	ID             string      `json:"id"`
	UserID         string      `json:"user_id"`
	StartedAt      time.Time   `json:"started_at"`
	CompletedAt    time.Time   `json:"completed_at"`
	ItemsRequested int         `json:"items_requested"`
	ItemsSucceeded int         `json:"items_succeeded"`
	ItemsFailed    int         `json:"items_failed"`
	PagesFetched   int         `json:"pages_fetched"`
	ProfileSynced  bool        `json:"profile_synced"`
	Cancelled      bool        `json:"cancelled,omitempty"`
	Errors         []SyncError `json:"errors,omitempty"`
}

// AddError appends a per-item failure and bumps the failed counter.
func (r *SyncRun) AddError(videoID, stage, message string) {
	r.ItemsFailed++
	r.Errors = append(r.Errors, SyncError{VideoID: videoID, Stage: stage, Message: message})
}
