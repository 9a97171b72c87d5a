package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClaim_IsTerminal(t *testing.T) {
	tests := []struct {
		status   string
		terminal bool
	}{
		{ClaimStatusPending, false},
		{ClaimStatusApproved, true},
		{ClaimStatusRejected, true},
	}
	for _, tt := range tests {
		c := &Claim{Status: tt.status}
		assert.Equalf(t, tt.terminal, c.IsTerminal(), "status=%s", tt.status)
		assert.Equalf(t, !tt.terminal, c.IsPending(), "status=%s", tt.status)
	}
}

func TestUser_IsAdmin(t *testing.T) {
	assert.True(t, (&User{Role: RoleAdmin}).IsAdmin())
	assert.False(t, (&User{Role: RoleUser}).IsAdmin())
	assert.True(t, ValidRole("user"))
	assert.False(t, ValidRole("root"))
}

func TestValidClaimStatus(t *testing.T) {
	assert.True(t, ValidClaimStatus("Pending"))
	assert.True(t, ValidClaimStatus("Rejected"))
	assert.False(t, ValidClaimStatus("pending"))
	assert.False(t, ValidClaimStatus(""))
}
