// Package domain: queued job entities for the asynchronous pipeline.
package domain

import (
	"time"
)

// JobKind enumerates task bodies the worker knows how to run.
type JobKind string

const (
	KindParse         JobKind = "parse"
	KindMatch         JobKind = "match"
	KindParseAndMatch JobKind = "parse_and_match"
)

// Priority names one of the three fixed queues.
type Priority string

const (
	PriorityPremium  Priority = "premium"
	PriorityStandard Priority = "standard"
	PriorityBatch    Priority = "batch"
)

// Priorities lists all queue priorities in dispatch order.
var Priorities = []Priority{PriorityPremium, PriorityStandard, PriorityBatch}

// Valid reports whether p names a known priority.
func (p Priority) Valid() bool {
	switch p {
	case PriorityPremium, PriorityStandard, PriorityBatch:
		return true
	}
	return false
}

// JobStatus tracks the queue lifecycle of a job.
type JobStatus string

const (
	JobQueued    JobStatus = "queued"
	JobRunning   JobStatus = "running"
	JobSucceeded JobStatus = "succeeded"
	JobFailed    JobStatus = "failed"
	JobDead      JobStatus = "dead"
)

// Job is one queued unit of work. Owned by the JobQueue once enqueued.
type Job struct {
	ID            string    `json:"id"`
	Kind          JobKind   `json:"kind"`
	Priority      Priority  `json:"priority"`
	Payload       []byte    `json:"payload"`
	EnqueuedAt    time.Time `json:"enqueued_at"`
	StartedAt     time.Time `json:"started_at,omitempty"`
	FinishedAt    time.Time `json:"finished_at,omitempty"`
	Attempts      int       `json:"attempts"`
	Status        JobStatus `json:"status"`
	LastError     string    `json:"last_error,omitempty"`
	WebhookURL    string    `json:"webhook_url,omitempty"`
	WebhookSecret string    `json:"webhook_secret,omitempty"`
}

// TaskPayload is the JSON schema of queued job payloads.
type TaskPayload struct {
	Kind          JobKind      `json:"kind"`
	CandidateID   string       `json:"candidate_id,omitempty"`
	JobID         string       `json:"job_id,omitempty"`
	Options       MatchOptions `json:"options,omitempty"`
	Document      []byte       `json:"document,omitempty"`
	Filename      string       `json:"filename,omitempty"`
	WebhookURL    string       `json:"webhook_url,omitempty"`
	WebhookSecret string       `json:"webhook_secret,omitempty"`
}

// QueueStats is a point-in-time snapshot of one priority queue.
type QueueStats struct {
	Pending int `json:"pending"`
	Running int `json:"running"`
	Dead    int `json:"dead"`
}
