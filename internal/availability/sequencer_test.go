package availability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSequencer_LastIssuedWins(t *testing.T) {
	seq := NewSequencer()
	first := seq.Next(context.Background())
	second := seq.Next(context.Background())

	assert.False(t, seq.IsLatest(first))
	assert.True(t, seq.IsLatest(second))
	assert.Greater(t, second.Seq(), first.Seq())
}

func TestSequencer_NextCancelsPrevious(t *testing.T) {
	seq := NewSequencer()
	first := seq.Next(context.Background())
	_ = seq.Next(context.Background())

	select {
	case <-first.Context().Done():
	default:
		t.Fatal("superseded token context should be canceled")
	}
}

func TestSequencer_Invalidate(t *testing.T) {
	seq := NewSequencer()
	tok := seq.Next(context.Background())
	seq.Invalidate()

	assert.False(t, seq.IsLatest(tok))
	assert.Error(t, tok.Context().Err())

	fresh := seq.Next(context.Background())
	assert.True(t, seq.IsLatest(fresh))
}

func TestSequencer_Close(t *testing.T) {
	seq := NewSequencer()
	tok := seq.Next(context.Background())
	seq.Close()

	assert.False(t, seq.IsLatest(tok))
	assert.Error(t, tok.Context().Err())

	late := seq.Next(context.Background())
	assert.False(t, seq.IsLatest(late))
	assert.Error(t, late.Context().Err())
}
