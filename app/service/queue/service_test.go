package queue

import (
	"context"
	"testing"

	"tutorbot/app/config"
	"tutorbot/app/service/conversation"

	"github.com/samber/do"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func job(problem string) Job {
	return Job{
		Ctx:     context.Background(),
		Request: conversation.Request{Problem: problem},
		Reply:   make(chan Outcome, 1),
	}
}

func TestAddRejectsWhenFull(t *testing.T) {
	svc := NewWithSize(2)

	require.NoError(t, svc.Add(job("a")))
	require.NoError(t, svc.Add(job("b")))
	assert.ErrorIs(t, svc.Add(job("c")), ErrQueueFull)
	assert.Equal(t, 2, svc.Len())

	first := <-svc.Channel()
	assert.Equal(t, "a", first.Request.Problem)

	assert.NoError(t, svc.Add(job("c")))
}

func TestShutdown(t *testing.T) {
	svc := NewWithSize(1)
	require.NoError(t, svc.Add(job("a")))

	require.NoError(t, svc.Shutdown())
	require.NoError(t, svc.Shutdown())

	assert.ErrorIs(t, svc.Add(job("b")), ErrClosed)

	// pending jobs are still drained
	pending, ok := <-svc.Channel()
	require.True(t, ok)
	assert.Equal(t, "a", pending.Request.Problem)

	_, ok = <-svc.Channel()
	assert.False(t, ok)
}

func TestNewUsesConfiguredSize(t *testing.T) {
	cfg := config.Default()
	cfg.Engine.QueueSize = 3

	di := do.New()
	do.ProvideValue(di, &cfg)

	svc, err := New(di)
	require.NoError(t, err)
	assert.Equal(t, 3, cap(svc.queue))
}
