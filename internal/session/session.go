// Package session holds per-session index snapshots and runs the ingest and
// query pipelines against them.
package session

import (
	"sync/atomic"
	"time"

	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/vector"
)

// Snapshot is one immutable, queryable state of a session.
type Snapshot struct {
	Index       *vector.Index
	Source      string
	Title       string
	Chunks      int
	BuiltAt     time.Time
	IngestionID string
}

// Session is a named slot holding at most one active Snapshot. A nil snapshot
// means no ingestion has succeeded yet. Readers load the snapshot once and use
// it for a whole query, so an ingest that publishes concurrently never mixes
// old and new indexes within one answer.
type Session struct {
	id       string
	created  time.Time
	snap     atomic.Pointer[Snapshot]
	lastUsed atomic.Int64
}

func newSession(id string, now time.Time) *Session {
	s := &Session{id: id, created: now}
	s.lastUsed.Store(now.UnixNano())
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// CreatedAt returns when the session was created.
func (s *Session) CreatedAt() time.Time { return s.created }

// Snapshot returns the active snapshot, or nil before the first successful ingest.
func (s *Session) Snapshot() *Snapshot { return s.snap.Load() }

// Ready reports whether the session can answer queries.
func (s *Session) Ready() bool { return s.snap.Load() != nil }

// LastUsed returns when the session last served an ingest or query.
func (s *Session) LastUsed() time.Time { return time.Unix(0, s.lastUsed.Load()) }

func (s *Session) touch(now time.Time) { s.lastUsed.Store(now.UnixNano()) }

func (s *Session) publish(snap *Snapshot) { s.snap.Store(snap) }

// Info summarizes the session for API responses.
func (s *Session) Info() *models.SessionInfo {
	info := &models.SessionInfo{
		ID:       s.id,
		LastUsed: s.LastUsed().UTC(),
	}
	if snap := s.Snapshot(); snap != nil {
		info.Ready = true
		info.Source = snap.Source
		info.Title = snap.Title
		info.Chunks = snap.Chunks
		info.BuiltAt = snap.BuiltAt
	}
	return info
}
