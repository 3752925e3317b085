package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNextUpdatedAt(t *testing.T) {
	prev := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{"later clock wins", prev.Add(2 * time.Second), prev.Add(2 * time.Second)},
		{"equal clock bumps", prev, prev.Add(time.Millisecond)},
		{"clock behind bumps", prev.Add(-time.Minute), prev.Add(time.Millisecond)},
		{"sub-millisecond is truncated", prev.Add(300 * time.Microsecond), prev.Add(time.Millisecond)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NextUpdatedAt(prev, tt.now)
			assert.True(t, got.Equal(tt.want), "got %s want %s", got, tt.want)
			assert.True(t, got.After(prev))
		})
	}
}

func TestValidSessionID(t *testing.T) {
	assert.True(t, ValidSessionID(NewSessionID()))
	assert.False(t, ValidSessionID(""))
	assert.False(t, ValidSessionID("not-a-real-id"))
	assert.False(t, ValidSessionID("65f1c0d2e4b0a1b2c3d4e5f6"))
	assert.False(t, ValidSessionID("{3f1c2a9e-8a3b-4c1d-9e2f-0a1b2c3d4e5f}"))
}

func TestMessageRoleValid(t *testing.T) {
	assert.True(t, RoleUser.Valid())
	assert.True(t, RoleAssistant.Valid())
	assert.True(t, RoleSystem.Valid())
	assert.False(t, MessageRole("tool").Valid())
}
