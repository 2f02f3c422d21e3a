package model

import (
	"time"

	"github.com/google/uuid"
)

// Delivery kinds
const (
	KindSend   = "send"
	KindRecord = "record"
)

// Delivery statuses
const (
	StatusPending = "pending"
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// Delivery represents one /send or /record job
type Delivery struct {
	ID           uuid.UUID  `json:"id"`
	Kind         string     `json:"kind"`
	GroupName    string     `json:"group_name,omitempty"`
	AudioURL     string     `json:"audio_url"`
	Message      string     `json:"message,omitempty"`
	LocalPath    string     `json:"local_path,omitempty"`
	Platform     string     `json:"platform"`
	Status       string     `json:"status"`
	ErrorMessage *string    `json:"error_message,omitempty"`
	DurationMs   *int64     `json:"duration_ms,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
}

// NewDelivery returns a pending delivery stamped with a fresh id.
func NewDelivery(kind, platform, audioURL string) *Delivery {
	return &Delivery{
		ID:        uuid.New(),
		Kind:      kind,
		AudioURL:  audioURL,
		Platform:  platform,
		Status:    StatusPending,
		CreatedAt: time.Now(),
	}
}

// Finish marks the delivery as done, recording err when non-nil.
func (d *Delivery) Finish(err error) {
	now := time.Now()
	elapsed := now.Sub(d.CreatedAt).Milliseconds()
	d.FinishedAt = &now
	d.DurationMs = &elapsed
	if err != nil {
		msg := err.Error()
		d.Status = StatusFailed
		d.ErrorMessage = &msg
		return
	}
	d.Status = StatusSuccess
	d.ErrorMessage = nil
}
