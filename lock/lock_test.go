package lock

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockRedisClient is a mock for RedisClient
type MockRedisClient struct {
	mock.Mock
}

// SetNX mocks the SetNX method
func (m *MockRedisClient) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd {
	args := m.Called(ctx, key, value, expiration)
	return redis.NewBoolResult(args.Bool(0), args.Error(1))
}

// Eval mocks the Eval method
func (m *MockRedisClient) Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd {
	called := m.Called(ctx, script, keys, args)
	return redis.NewCmdResult(called.Get(0), called.Error(1))
}

func TestNoop(t *testing.T) {
	release, err := Noop{}.Acquire(context.Background(), "feed")
	require.NoError(t, err)
	assert.NoError(t, release(context.Background()))
}

func TestRedisLocker_AcquireAndRelease(t *testing.T) {
	client := new(MockRedisClient)
	locker := NewRedisLocker(client, 5*time.Minute)

	var token interface{}
	client.On("SetNX", mock.Anything, "feedsync:lock:feed-1", mock.AnythingOfType("string"), 5*time.Minute).
		Run(func(args mock.Arguments) { token = args.Get(2) }).
		Return(true, nil)

	release, err := locker.Acquire(context.Background(), "feed-1")
	require.NoError(t, err)
	require.NotNil(t, release)

	client.On("Eval", mock.Anything, releaseScript, []string{"feedsync:lock:feed-1"}, mock.Anything).
		Run(func(args mock.Arguments) {
			assert.Equal(t, []interface{}{token}, args.Get(3))
		}).
		Return(int64(1), nil)

	assert.NoError(t, release(context.Background()))
	client.AssertExpectations(t)
}

func TestRedisLocker_Held(t *testing.T) {
	client := new(MockRedisClient)
	client.On("SetNX", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(false, nil)

	release, err := NewRedisLocker(client, time.Minute).Acquire(context.Background(), "feed-1")
	assert.Nil(t, release)
	assert.ErrorIs(t, err, ErrLocked)
}

func TestRedisLocker_Errors(t *testing.T) {
	client := new(MockRedisClient)
	client.On("SetNX", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(false, errors.New("connection refused"))

	_, err := NewRedisLocker(client, time.Minute).Acquire(context.Background(), "feed-1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrLocked)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestRedisLocker_ReleaseError(t *testing.T) {
	client := new(MockRedisClient)
	client.On("SetNX", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(true, nil)
	client.On("Eval", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("timeout"))

	release, err := NewRedisLocker(client, time.Minute).Acquire(context.Background(), "feed-1")
	require.NoError(t, err)

	err = release(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "release lock")
}
