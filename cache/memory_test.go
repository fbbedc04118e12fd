package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMemory_SetAndGet(t *testing.T) {
	m := NewMemory()
	m.Set("k", "v", time.Hour)

	got, ok := m.Get("k")
	assert.True(t, ok)
	assert.Equal(t, "v", got)
}

func TestMemory_Miss(t *testing.T) {
	m := NewMemory()
	_, ok := m.Get("nope")
	assert.False(t, ok)
}

func TestMemory_Expiry(t *testing.T) {
	m := NewMemory()
	m.Set("k", "v", 30*time.Millisecond)

	time.Sleep(60 * time.Millisecond)
	_, ok := m.Get("k")
	assert.False(t, ok)
}

func TestMemory_PerEntryTTL(t *testing.T) {
	m := NewMemory()
	m.Set("short", 1, 30*time.Millisecond)
	m.Set("long", 2, time.Hour)

	time.Sleep(60 * time.Millisecond)
	_, ok := m.Get("short")
	assert.False(t, ok)
	got, ok := m.Get("long")
	assert.True(t, ok)
	assert.Equal(t, 2, got)
}

func TestMemory_Delete(t *testing.T) {
	m := NewMemory()
	m.Set("k", "v", time.Hour)
	m.Delete("k")
	_, ok := m.Get("k")
	assert.False(t, ok)
	assert.Equal(t, 0, m.Len())
}
