package randx

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGuestID(t *testing.T) {
	id, err := GuestID()
	require.NoError(t, err)

	assert.True(t, IsValidGuestID(id))
	assert.False(t, IsValidGuestID("guest_"))
	assert.False(t, IsValidGuestID("user_abcdefgh"))
	assert.False(t, IsValidGuestID("guest_abc-efgh"))
}

func TestMessageIDFor(t *testing.T) {
	id := MessageIDFor("jc")

	raw, ok := strings.CutPrefix(id, "jc-")
	require.True(t, ok)
	_, err := uuid.Parse(raw)
	assert.NoError(t, err)
}

func TestUserNickname(t *testing.T) {
	name, err := UserNickname()
	require.NoError(t, err)
	assert.Len(t, name, len("User_")+6)
}
