// If you are AI: This file contains unit tests for the registry and its token table.

package bus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryGetOrCreate(t *testing.T) {
	reg := NewRegistry(16)
	key := NewStreamKey("live", "test")

	s1, created := reg.GetOrCreate(key)
	require.True(t, created)
	s2, created := reg.GetOrCreate(key)
	assert.False(t, created)
	assert.Same(t, s1, s2)
	assert.Equal(t, 1, reg.Count())
	assert.Same(t, s1, reg.Get(key))
	assert.Nil(t, reg.Get(NewStreamKey("live", "other")))
}

func TestRegistryTokens(t *testing.T) {
	reg := NewRegistry(16)
	sub := NewSubscriber(8, BackpressureDropOldest, false)
	a := reg.Register(sub)
	b := reg.Register(nil)
	assert.NotZero(t, a)
	assert.NotEqual(t, a, b)

	sink, ok := reg.Resolve(a)
	require.True(t, ok)
	assert.Same(t, sub, sink)

	reg.Unregister(a)
	_, ok = reg.Resolve(a)
	assert.False(t, ok)
}

func TestRegistryRemovesEmptySessions(t *testing.T) {
	reg := NewRegistry(16)
	key := NewStreamKey("live", "test")

	pub := reg.Register(nil)
	_, err := reg.Publish(key, pub)
	require.NoError(t, err)

	subToken := reg.Register(NewSubscriber(8, BackpressureDropOldest, false))
	_, err = reg.Subscribe(key, subToken)
	require.NoError(t, err)

	reg.Unpublish(key, pub)
	assert.Equal(t, 1, reg.Count(), "subscriber keeps the session alive")

	reg.Unsubscribe(key, subToken)
	assert.Zero(t, reg.Count())
	assert.False(t, reg.RemoveIfEmpty(key))
}

func TestRegistrySubscribeUnknownStream(t *testing.T) {
	reg := NewRegistry(16)
	tok := reg.Register(NewSubscriber(8, BackpressureDropOldest, false))
	_, err := reg.Subscribe(NewStreamKey("live", "missing"), tok)
	assert.ErrorIs(t, err, ErrStreamNotFound)
	assert.Zero(t, reg.Count())
}

func TestRegistryListSorted(t *testing.T) {
	reg := NewRegistry(16)
	reg.GetOrCreate(NewStreamKey("live", "b"))
	reg.GetOrCreate(NewStreamKey("live", "a"))
	reg.GetOrCreate(NewStreamKey("app", "z"))

	keys := reg.List()
	require.Len(t, keys, 3)
	assert.Equal(t, "/app/z", keys[0].String())
	assert.Equal(t, "/live/a", keys[1].String())
	assert.Len(t, reg.Sessions(), 3)
}

func TestParseStreamPath(t *testing.T) {
	key, err := ParseStreamPath("/live/test")
	require.NoError(t, err)
	assert.Equal(t, NewStreamKey("live", "test"), key)
	assert.Equal(t, "/live/test", key.String())

	key, err = ParseStreamPath("live/a/b")
	require.NoError(t, err)
	assert.Equal(t, "a/b", key.Name)

	for _, bad := range []string{"", "/", "/live", "/live/", "//x"} {
		_, err := ParseStreamPath(bad)
		assert.ErrorIs(t, err, ErrInvalidStreamPath, bad)
	}
}
