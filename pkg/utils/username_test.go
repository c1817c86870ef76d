package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateUsername(t *testing.T) {
	tests := []struct {
		name     string
		username string
		wantErr  bool
	}{
		{"valid simple", "alice", false},
		{"valid with numbers", "alice42", false},
		{"valid with underscore", "mood_fan", false},
		{"valid starts with digit", "7alice", false},
		{"too short", "ab", true},
		{"too long", "this_username_is_way_too_long", true},
		{"starts with underscore", "_alice", true},
		{"contains space", "al ice", true},
		{"contains dash", "al-ice", true},
		{"empty", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateUsername(tt.username)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNormalizeUsername(t *testing.T) {
	assert.Equal(t, "alice", NormalizeUsername("  Alice "))
	assert.Equal(t, "bob_42", NormalizeUsername("BOB_42"))
}
