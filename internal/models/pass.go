package models

import (
	"fmt"
	"time"
)

// PassRecord is the persisted outcome of one reconciliation pass over one playlist.
type PassRecord struct {
	id           string
	sequence     int
	playlist     string
	fetched      int
	failed       int
	deleted      int
	artifacts    int
	errorMessage string
	startedAt    time.Time
	finishedAt   time.Time
	createdAt    time.Time
	updatedAt    time.Time
	deletedAt    *time.Time
	events       []PassEvent
}

// EventKind classifies a per-file entry in a pass record.
type EventKind string

const (
	EventFetched  EventKind = "fetched"
	EventFailed   EventKind = "failed"
	EventDeleted  EventKind = "deleted"
	EventArtifact EventKind = "artifact"
)

// PassEvent is a single file-level outcome within a pass.
type PassEvent struct {
	Kind   EventKind `json:"kind"`
	Name   string    `json:"name"`
	Detail string    `json:"detail,omitempty"`
}

// PassCounts groups the per-pass counters.
type PassCounts struct {
	Fetched   int
	Failed    int
	Deleted   int
	Artifacts int
}

// NewPassRecord creates a record for a pass over playlist that ran between started and finished.
func NewPassRecord(sequence int, playlist string, counts PassCounts, started, finished time.Time, errorMessage string) *PassRecord {
	now := time.Now()
	return &PassRecord{
		sequence:     sequence,
		playlist:     playlist,
		fetched:      counts.Fetched,
		failed:       counts.Failed,
		deleted:      counts.Deleted,
		artifacts:    counts.Artifacts,
		errorMessage: errorMessage,
		startedAt:    started,
		finishedAt:   finished,
		createdAt:    now,
		updatedAt:    now,
	}
}

func (p *PassRecord) ID() string       { return p.id }
func (p *PassRecord) Sequence() int    { return p.sequence }
func (p *PassRecord) Playlist() string { return p.playlist }
func (p *PassRecord) Counts() PassCounts {
	return PassCounts{p.fetched, p.failed, p.deleted, p.artifacts}
}
func (p *PassRecord) ErrorMessage() string    { return p.errorMessage }
func (p *PassRecord) StartedAt() time.Time    { return p.startedAt }
func (p *PassRecord) FinishedAt() time.Time   { return p.finishedAt }
func (p *PassRecord) CreatedAt() time.Time    { return p.createdAt }
func (p *PassRecord) UpdatedAt() time.Time    { return p.updatedAt }
func (p *PassRecord) DeletedAt() *time.Time   { return p.deletedAt }
func (p *PassRecord) Duration() time.Duration { return p.finishedAt.Sub(p.startedAt) }
func (p *PassRecord) Events() []PassEvent     { return p.events }

func (p *PassRecord) SetID(id string)            { p.id = id }
func (p *PassRecord) SetSequence(seq int)        { p.sequence = seq }
func (p *PassRecord) SetCreatedAt(t time.Time)   { p.createdAt = t }
func (p *PassRecord) SetUpdatedAt(t time.Time)   { p.updatedAt = t }
func (p *PassRecord) SetDeletedAt(t *time.Time)  { p.deletedAt = t }
func (p *PassRecord) SetErrorMessage(msg string) { p.errorMessage = msg }

// AddEvent appends a file-level outcome.
func (p *PassRecord) AddEvent(kind EventKind, name, detail string) {
	p.events = append(p.events, PassEvent{Kind: kind, Name: name, Detail: detail})
}

// Validate checks required fields and counter sanity.
func (p *PassRecord) Validate() error {
	if p.playlist == "" {
		return fmt.Errorf("playlist is required")
	}
	if p.fetched < 0 || p.failed < 0 || p.deleted < 0 || p.artifacts < 0 {
		return fmt.Errorf("counts must not be negative")
	}
	if p.failed > p.fetched {
		return fmt.Errorf("failed count %d exceeds fetched count %d", p.failed, p.fetched)
	}
	if p.finishedAt.Before(p.startedAt) {
		return fmt.Errorf("pass finished before it started")
	}
	return nil
}

var _ Model = (*PassRecord)(nil)
