package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewPolicyService_Parsing(t *testing.T) {
	p := NewPolicyService(" 1, 2 ,x,", "10,,abc, 11")
	assert.Equal(t, map[int64]bool{1: true, 2: true}, p.AdminUserIDs)
	assert.Equal(t, map[int64]bool{10: true, 11: true}, p.AllowedUserIDs)
}

func TestPolicyService_IsAllowed(t *testing.T) {
	open := NewPolicyService("1", "")
	assert.True(t, open.IsAllowed(42), "empty allow list admits everyone")

	restricted := NewPolicyService("1", "10")
	assert.True(t, restricted.IsAllowed(1), "admins always allowed")
	assert.True(t, restricted.IsAllowed(10))
	assert.False(t, restricted.IsAllowed(42))
}

func TestPolicyService_IsCommandAllowed(t *testing.T) {
	p := NewPolicyService("1", "10")

	tests := []struct {
		userID  int64
		command string
		want    bool
	}{
		{1, "token", true},
		{1, "status", true},
		{10, "start", true},
		{10, "help", true},
		{10, "token", true},
		{10, "status", false},
		{42, "token", false},
		{42, "help", false},
		{1, "reset", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, p.IsCommandAllowed(tt.userID, tt.command), "user %d /%s", tt.userID, tt.command)
	}
}
