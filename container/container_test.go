package container

import (
	"errors"
	"sync"
	"testing"

	"github.com/Nexora-Open-Source/job-feed-sync/feedsync"
	"github.com/Nexora-Open-Source/job-feed-sync/fetcher"
	"github.com/Nexora-Open-Source/job-feed-sync/store"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContainerGet(t *testing.T) {
	c := NewContainer()
	c.Register("plain", 1)
	c.RegisterSingleton("single", "s")
	calls := 0
	c.RegisterFactory("made", func() (interface{}, error) {
		calls++
		return calls, nil
	})
	c.RegisterFactory("broken", func() (interface{}, error) {
		return nil, errors.New("boom")
	})

	v, err := c.Get("plain")
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	v, err = c.Get("single")
	require.NoError(t, err)
	assert.Equal(t, "s", v)

	v, err = c.Get("made")
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	_, err = c.Get("broken")
	assert.ErrorContains(t, err, "boom")

	_, err = c.Get("missing")
	assert.Error(t, err)
}

func TestContainerFactoryMayResolveOtherServices(t *testing.T) {
	c := NewContainer()
	c.RegisterSingleton("base", 2)
	c.RegisterFactory("derived", func() (interface{}, error) {
		base, err := c.Get("base")
		if err != nil {
			return nil, err
		}
		return base.(int) * 10, nil
	})

	v, err := c.Get("derived")
	require.NoError(t, err)
	assert.Equal(t, 20, v)
}

func TestContainerTypedGetters(t *testing.T) {
	logger := logrus.New()
	mem := store.NewMemoryStore()
	orchestrator := feedsync.NewOrchestrator(mem, mem, mem, fetcher.New(nil), logger)

	c := NewContainer()
	require.NoError(t, c.InitializeServices(mem, orchestrator, nil, logger))

	gotLogger, err := c.GetLogger()
	require.NoError(t, err)
	assert.Same(t, logger, gotLogger)

	gotStore, err := c.GetStore()
	require.NoError(t, err)
	assert.Same(t, mem, gotStore)

	gotOrchestrator, err := c.GetOrchestrator()
	require.NoError(t, err)
	assert.Same(t, orchestrator, gotOrchestrator)

	handler, err := c.GetHandler()
	require.NoError(t, err)
	assert.Nil(t, handler.AsyncProcessor)

	_, err = c.GetAsyncProcessor()
	assert.Error(t, err)

	// No alert manager on the orchestrator, so none is registered.
	_, err = c.GetAlertManager()
	assert.Error(t, err)

	c.RegisterSingleton(ServiceLogger, "not a logger")
	_, err = c.GetLogger()
	assert.ErrorContains(t, err, "not of expected type")
}

func TestContainerInitializeRequiresCoreServices(t *testing.T) {
	c := NewContainer()
	assert.Error(t, c.InitializeServices(nil, nil, nil, nil))
}

func TestContainerClose(t *testing.T) {
	c := NewContainer()
	var order []string
	var mu sync.Mutex
	record := func(name string, err error) func() error {
		return func() error {
			mu.Lock()
			defer mu.Unlock()
			order = append(order, name)
			return err
		}
	}
	c.OnClose("first", record("first", nil))
	c.OnClose("second", record("second", errors.New("flush failed")))
	c.OnClose("third", record("third", nil))

	err := c.Close()

	assert.ErrorContains(t, err, "failed to close second")
	assert.Equal(t, []string{"third", "second", "first"}, order)

	// A second Close has nothing left to run.
	assert.NoError(t, c.Close())
	assert.Len(t, order, 3)
}
