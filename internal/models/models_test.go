// internal/models/models_test.go
package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetaFor(t *testing.T) {
	meta, ok := MetaFor(KindTaskOverdue)
	require.True(t, ok)
	assert.Equal(t, PriorityHigh, meta.Priority)
	assert.Equal(t, []Channel{ChannelTelegram, ChannelEmail}, meta.Channels)

	_, ok = MetaFor("bogus_kind")
	assert.False(t, ok)
}

func TestKinds_EveryKindHasMeta(t *testing.T) {
	for _, kind := range Kinds() {
		meta, ok := MetaFor(kind)
		require.True(t, ok, string(kind))
		assert.NotEmpty(t, meta.Title)
		assert.NotEmpty(t, meta.Channels)
		// telegram is the baseline channel for every kind
		assert.Equal(t, ChannelTelegram, meta.Channels[0])
	}
}

func TestInventoryItem_Understocked(t *testing.T) {
	tests := []struct {
		name     string
		quantity float64
		min      float64
		expected bool
	}{
		{name: "below threshold", quantity: 5, min: 10, expected: true},
		{name: "at threshold", quantity: 10, min: 10, expected: true},
		{name: "above threshold", quantity: 15, min: 10, expected: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := InventoryItem{Quantity: tt.quantity, MinQuantity: tt.min}
			assert.Equal(t, tt.expected, item.Understocked())
		})
	}
}

func TestTask_IsOpen(t *testing.T) {
	assert.True(t, Task{Status: TaskStatusCreated}.IsOpen())
	assert.True(t, Task{Status: TaskStatusAssigned}.IsOpen())
	assert.True(t, Task{Status: TaskStatusInProgress}.IsOpen())
	assert.False(t, Task{Status: TaskStatusCompleted}.IsOpen())
	assert.False(t, Task{Status: TaskStatusCancelled}.IsOpen())
}

func TestUser_HasRole(t *testing.T) {
	u := User{Roles: []string{RoleTechnician, RoleOperator}}
	assert.True(t, u.HasRole(RoleTechnician))
	assert.False(t, u.HasRole(RoleAdmin))
}
