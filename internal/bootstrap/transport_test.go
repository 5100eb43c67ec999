package bootstrap

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type flakyConsumer struct {
	calls    atomic.Int32
	failures int32
}

func (c *flakyConsumer) Consume(ctx context.Context, handler func(context.Context, []byte) error) error {
	if c.calls.Add(1) <= c.failures {
		return errors.New("broker connection lost")
	}
	<-ctx.Done()
	return ctx.Err()
}

func withConsumerBackoff(t *testing.T, d time.Duration) {
	t.Helper()
	prev := consumerBackoff
	consumerBackoff = d
	t.Cleanup(func() { consumerBackoff = prev })
}

func TestConsumeForever_RestartsAfterError(t *testing.T) {
	withConsumerBackoff(t, time.Millisecond)
	consumer := &flakyConsumer{failures: 2}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		ConsumeForever(ctx, consumer, func(context.Context, []byte) error { return nil })
		close(done)
	}()

	assert.Eventually(t, func() bool { return consumer.calls.Load() == 3 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("consumer loop did not stop after cancel")
	}
	assert.Equal(t, int32(3), consumer.calls.Load())
}

func TestConsumeForever_StopsDuringBackoff(t *testing.T) {
	withConsumerBackoff(t, time.Hour)
	consumer := &flakyConsumer{failures: 1}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		ConsumeForever(ctx, consumer, func(context.Context, []byte) error { return nil })
		close(done)
	}()

	assert.Eventually(t, func() bool { return consumer.calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("consumer loop did not stop during backoff")
	}
	assert.Equal(t, int32(1), consumer.calls.Load())
}
