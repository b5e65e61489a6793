package googleauth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAllowList(t *testing.T) {
	t.Run("trims and drops empty entries", func(t *testing.T) {
		allow, err := NewAllowList([]string{" user@example.com ", "", "  ", "admin@example.com"})
		require.NoError(t, err)
		assert.Equal(t, 2, allow.Len())
		assert.Equal(t, []string{"admin@example.com", "user@example.com"}, allow.Emails())
	})

	t.Run("empty list is an error", func(t *testing.T) {
		allow, err := NewAllowList([]string{"", " "})
		assert.Nil(t, allow)
		assert.ErrorIs(t, err, ErrEmptyAllowList)
	})

	t.Run("duplicates collapse", func(t *testing.T) {
		allow, err := NewAllowList([]string{"user@example.com", "user@example.com"})
		require.NoError(t, err)
		assert.Equal(t, 1, allow.Len())
	})
}

func TestParseAllowList(t *testing.T) {
	allow, err := ParseAllowList("user@example.com, admin@example.com,")
	require.NoError(t, err)
	assert.True(t, allow.Contains("user@example.com"))
	assert.True(t, allow.Contains("admin@example.com"))

	_, err = ParseAllowList("")
	assert.ErrorIs(t, err, ErrEmptyAllowList)
}

func TestAllowList_Contains(t *testing.T) {
	allow, err := NewAllowList([]string{"user@example.com"})
	require.NoError(t, err)

	tests := []struct {
		email string
		want  bool
	}{
		{"user@example.com", true},
		{"other@example.com", false},
		{"User@Example.com", false},
		{"user@example.com ", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			assert.Equal(t, tt.want, allow.Contains(tt.email))
		})
	}

	var nilList *AllowList
	assert.False(t, nilList.Contains("user@example.com"))
	assert.Equal(t, 0, nilList.Len())
}
