package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRequestGate_Authenticate(t *testing.T) {
	tokens := NewTokenService("test-secret", time.Minute)
	gate := NewRequestGate(tokens)

	valid, err := tokens.Issue("user-123")
	assert.NoError(t, err)

	tests := []struct {
		name       string
		header     string
		wantUserID string
		wantErr    bool
	}{
		{name: "bearer scheme", header: "Bearer " + valid, wantUserID: "user-123"},
		{name: "scheme is ignored", header: "Token " + valid, wantUserID: "user-123"},
		{name: "missing header", header: "", wantErr: true},
		{name: "no scheme separator", header: valid, wantErr: true},
		{name: "empty token", header: "Bearer ", wantErr: true},
		{name: "garbage token", header: "Bearer garbage", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			userID, err := gate.Authenticate(tt.header)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidToken)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.wantUserID, userID)
		})
	}
}
