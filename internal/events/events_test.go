package events

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventBus_PublishJSON(t *testing.T) {
	bus := NewEventBus(zerolog.Nop())

	var got []Event
	bus.Subscribe(ReservationCreated, func(e Event) error {
		got = append(got, e)
		return nil
	})
	bus.Subscribe(ReservationCreated, func(Event) error {
		return errors.New("second handler fails")
	})

	require.NoError(t, bus.PublishJSON(ReservationCreated, map[string]string{"id": "r1"}))
	require.NoError(t, bus.PublishJSON(ReservationUpdated, map[string]string{"id": "r1"}))

	require.Len(t, got, 1)
	assert.NotEmpty(t, got[0].ID)
	assert.False(t, got[0].CreatedAt.IsZero())

	var payload struct {
		ID string `json:"id"`
	}
	require.NoError(t, got[0].Decode(&payload))
	assert.Equal(t, "r1", payload.ID)
}

func TestEventBus_PublishJSONRejectsUnmarshalable(t *testing.T) {
	bus := NewEventBus(zerolog.Nop())
	assert.Error(t, bus.PublishJSON(ReservationConflict, make(chan int)))
}
