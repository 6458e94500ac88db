package bus

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/papertrade/papertrade/config"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStreams scripts the stream commands the bus issues. Pending entries are
// served for backlog reads (id "0"), fresh entries for ">" reads; once both
// are drained it cancels the subscription context.
type fakeStreams struct {
	mu sync.Mutex

	groupCreateErr error

	pending []redis.XMessage
	fresh   []redis.XMessage

	pendingServed bool
	freshServed   bool

	readIDs []string
	readers []string
	acked   []string
	added   []*redis.XAddArgs
	addErr  error

	cancel context.CancelFunc
}

func (f *fakeStreams) XAdd(_ context.Context, a *redis.XAddArgs) *redis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.added = append(f.added, a)
	if f.addErr != nil {
		return redis.NewStringResult("", f.addErr)
	}
	return redis.NewStringResult("1-1", nil)
}

func (f *fakeStreams) XGroupCreateMkStream(_ context.Context, _, _, _ string) *redis.StatusCmd {
	if f.groupCreateErr != nil {
		return redis.NewStatusResult("", f.groupCreateErr)
	}
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeStreams) XReadGroup(_ context.Context, a *redis.XReadGroupArgs) *redis.XStreamSliceCmd {
	f.mu.Lock()
	defer f.mu.Unlock()

	id := a.Streams[len(a.Streams)-1]
	f.readIDs = append(f.readIDs, id)
	f.readers = append(f.readers, a.Consumer)

	if id == "0" {
		if !f.pendingServed {
			f.pendingServed = true
			return redis.NewXStreamSliceCmdResult([]redis.XStream{{Stream: a.Streams[0], Messages: f.pending}}, nil)
		}
		return redis.NewXStreamSliceCmdResult([]redis.XStream{}, nil)
	}

	if !f.freshServed {
		f.freshServed = true
		return redis.NewXStreamSliceCmdResult([]redis.XStream{{Stream: a.Streams[0], Messages: f.fresh}}, nil)
	}

	f.cancel()
	return redis.NewXStreamSliceCmdResult(nil, redis.Nil)
}

func (f *fakeStreams) XAck(_ context.Context, _, _ string, ids ...string) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acked = append(f.acked, ids...)
	return redis.NewIntResult(int64(len(ids)), nil)
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Bus.StreamMaxLen = 100
	cfg.Bus.PublishTimeout = time.Second
	cfg.Bus.ReadBlock = time.Millisecond
	cfg.Bus.ReadBatch = 10
	return cfg
}

func msg(id, payload string) redis.XMessage {
	return redis.XMessage{ID: id, Values: map[string]any{payloadField: payload}}
}

func TestSubscribeDrainsBacklogBeforeNewEntries(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fake := &fakeStreams{
		pending: []redis.XMessage{msg("1-1", "left over"), msg("1-2", "also left over")},
		fresh:   []redis.XMessage{msg("2-1", "brand new")},
		cancel:  cancel,
	}
	b := &RedisBus{redis: fake, cfg: testConfig()}

	var handled []string
	handler := func(_ context.Context, payload []byte) error {
		handled = append(handled, string(payload))
		return nil
	}

	err := b.Subscribe(ctx, "order_events", "portfolio-service-group", "consumer-1", handler)
	require.ErrorIs(t, err, context.Canceled)

	// unacked entries from a previous run come back first
	assert.Equal(t, []string{"left over", "also left over", "brand new"}, handled)
	assert.ElementsMatch(t, []string{"1-1", "1-2", "2-1"}, fake.acked)

	require.GreaterOrEqual(t, len(fake.readIDs), 3)
	assert.Equal(t, "0", fake.readIDs[0])
	assert.Equal(t, ">", fake.readIDs[len(fake.readIDs)-1])

	for _, consumer := range fake.readers {
		assert.Equal(t, "consumer-1", consumer)
	}
}

func TestSubscribeAcksWhenHandlerFails(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fake := &fakeStreams{
		pendingServed: true,
		fresh:         []redis.XMessage{msg("3-1", "poison")},
		cancel:        cancel,
	}
	b := &RedisBus{redis: fake, cfg: testConfig()}

	handler := func(_ context.Context, _ []byte) error {
		return errors.New("can't process")
	}

	err := b.Subscribe(ctx, "order_events", "portfolio-service-group", "consumer-1", handler)
	require.ErrorIs(t, err, context.Canceled)

	// a poison message never wedges the group
	assert.Equal(t, []string{"3-1"}, fake.acked)
}

func TestSubscribeToleratesExistingGroup(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fake := &fakeStreams{
		groupCreateErr: errors.New("BUSYGROUP Consumer Group name already exists"),
		pendingServed:  true,
		cancel:         cancel,
	}
	b := &RedisBus{redis: fake, cfg: testConfig()}

	err := b.Subscribe(ctx, "order_events", "portfolio-service-group", "consumer-1", func(_ context.Context, _ []byte) error {
		return nil
	})
	require.ErrorIs(t, err, context.Canceled)
}

func TestSubscribeFailsOnGroupCreateError(t *testing.T) {
	fake := &fakeStreams{groupCreateErr: errors.New("connection refused")}
	b := &RedisBus{redis: fake, cfg: testConfig()}

	err := b.Subscribe(context.Background(), "order_events", "portfolio-service-group", "consumer-1", func(_ context.Context, _ []byte) error {
		return nil
	})
	assert.Error(t, err)
}

func TestPublish(t *testing.T) {
	fake := &fakeStreams{}
	b := &RedisBus{redis: fake, cfg: testConfig()}

	err := b.Publish(context.Background(), "stock_price_updates", []byte(`{"symbol":"ABC"}`))
	require.NoError(t, err)

	require.Len(t, fake.added, 1)
	assert.Equal(t, "stock_price_updates", fake.added[0].Stream)
	assert.Equal(t, int64(100), fake.added[0].MaxLen)
	assert.True(t, fake.added[0].Approx)
}

func TestPublishReturnsError(t *testing.T) {
	fake := &fakeStreams{addErr: errors.New("stream unavailable")}
	b := &RedisBus{redis: fake, cfg: testConfig()}

	err := b.Publish(context.Background(), "stock_price_updates", []byte(`{}`))
	assert.Error(t, err)
}

func TestPublishAsyncDeliversResult(t *testing.T) {
	fake := &fakeStreams{addErr: errors.New("stream unavailable")}
	b := &RedisBus{redis: fake, cfg: testConfig()}

	res := b.PublishAsync(context.Background(), "order_events", []byte(`{}`))

	select {
	case err := <-res:
		assert.Error(t, err)
	case <-time.After(time.Second):
		t.Fatal("no publish result received")
	}
}
