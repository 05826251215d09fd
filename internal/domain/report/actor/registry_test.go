// SPDX-License-Identifier: MIT

package actor

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestRegistry_LastWriteWins(t *testing.T) {
	r := NewRegistry()
	u := uuid.New()
	c1, c2 := NewSession(u, 1), NewSession(u, 1)

	assert.Nil(t, r.Register(c1))
	assert.Same(t, c1, r.Register(c2))

	got, ok := r.Lookup(u)
	assert.True(t, ok)
	assert.Same(t, c2, got)
	assert.Equal(t, 1, r.Len())
}

func TestRegistry_RegisterSameSessionTwice(t *testing.T) {
	r := NewRegistry()
	s := NewSession(uuid.New(), 1)
	r.Register(s)
	assert.Nil(t, r.Register(s))
}

func TestRegistry_DeregisterIdempotent(t *testing.T) {
	r := NewRegistry()
	u := uuid.New()
	assert.False(t, r.Deregister(u, nil))
	assert.False(t, r.Deregister(u, nil))
	assert.Zero(t, r.Len())

	r.Register(NewSession(u, 1))
	assert.True(t, r.Deregister(u, nil))
	assert.False(t, r.Deregister(u, nil))
}

func TestRegistry_DeregisterOnlyOwnSession(t *testing.T) {
	r := NewRegistry()
	u := uuid.New()
	old, cur := NewSession(u, 1), NewSession(u, 1)
	r.Register(old)
	r.Register(cur)

	assert.False(t, r.Deregister(u, old), "stale session must not evict the live one")
	got, ok := r.Lookup(u)
	assert.True(t, ok)
	assert.Same(t, cur, got)

	assert.True(t, r.Deregister(u, cur))
	_, ok = r.Lookup(u)
	assert.False(t, ok)
}
