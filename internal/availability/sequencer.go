package availability

import (
	"context"
	"sync"
)

// Token identifies one issued check. Its context is canceled as soon as a
// newer token is issued or the sequencer is closed.
type Token struct {
	seq uint64
	ctx context.Context
}

// Seq returns the token's sequence number.
func (t Token) Seq() uint64 { return t.seq }

// Context returns the context the check should run under.
func (t Token) Context() context.Context { return t.ctx }

// Sequencer implements last-issued-wins ordering for asynchronous checks.
// Only the most recently issued token is ever considered current.
type Sequencer struct {
	mu     sync.Mutex
	seq    uint64
	cancel context.CancelFunc
	closed bool
}

// NewSequencer creates a sequencer.
func NewSequencer() *Sequencer {
	return &Sequencer{}
}

// Next issues a new token derived from parent and aborts the previous one.
func (s *Sequencer) Next(parent context.Context) Token {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}
	s.seq++
	ctx, cancel := context.WithCancel(parent)
	if s.closed {
		cancel()
	}
	s.cancel = cancel
	return Token{seq: s.seq, ctx: ctx}
}

// IsLatest reports whether t is still the current token.
func (s *Sequencer) IsLatest(t Token) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.closed && t.seq == s.seq
}

// Invalidate makes every issued token stale without closing the sequencer.
func (s *Sequencer) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.seq++
}

// Close cancels the current token; no token is current afterwards.
func (s *Sequencer) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.closed = true
}
