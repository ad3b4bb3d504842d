package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultProfileUsesUsernameAsDisplayName(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	p := DefaultProfile("alice", now)

	assert.Equal(t, "alice", p.Section("profile")["displayName"])
	assert.Equal(t, "2024-01-01T12:00:00Z", p.Section("profile")["joinDate"])
	assert.Equal(t, "retro-dark", p.Section("settings")["theme"])
	assert.Equal(t, true, p.Section("settings")["notifications"])
	assert.Equal(t, 0, p.Section("activity")["totalLogins"])
}

func TestDefaultProfileSerializesEmptyCollections(t *testing.T) {
	p := DefaultProfile("alice", time.Now())

	data, err := json.Marshal(p)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"favorites":[]`)
	assert.Contains(t, string(data), `"avatar":null`)
}

func TestSectionMissingOrWrongType(t *testing.T) {
	p := Profile{"settings": "not-an-object"}

	assert.Nil(t, p.Section("settings"))
	assert.Nil(t, p.Section("profile"))
}
