package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"flight-sniper/models"
	"flight-sniper/utils"
)

type countingNotifier struct {
	calls int
	err   error
}

func (c *countingNotifier) Notify(context.Context, models.Alert) error {
	c.calls++
	return c.err
}

func TestMultiTriesEveryNotifier(t *testing.T) {
	boom := errors.New("boom")
	first := &countingNotifier{err: boom}
	second := &countingNotifier{}

	err := Multi{first, second}.Notify(context.Background(), sampleAlert())

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, first.calls)
	assert.Equal(t, 1, second.calls)
}

func TestMultiEmpty(t *testing.T) {
	assert.NoError(t, Multi{}.Notify(context.Background(), sampleAlert()))
}

func TestLogNotifier(t *testing.T) {
	n := NewLogNotifier(utils.NewNopLogger())
	assert.NoError(t, n.Notify(context.Background(), sampleAlert()))
}
