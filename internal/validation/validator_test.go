package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/photokeepapp/photokeep-server/internal/errors"
)

type createUserRequest struct {
	Username   string `json:"username" validate:"required,min=2,max=32"`
	Email      string `json:"email,omitempty" validate:"omitempty,email"`
	QuotaBytes int64  `json:"quota_bytes,omitempty" validate:"omitempty,gt=0"`
}

func TestValidateOK(t *testing.T) {
	v := New()
	err := v.Validate(createUserRequest{Username: "alice", Email: "alice@example.com", QuotaBytes: 100})
	assert.NoError(t, err)
}

func TestValidateCollectsFieldErrors(t *testing.T) {
	v := New()
	err := v.Validate(createUserRequest{Username: "", Email: "not-an-email"})
	require.Error(t, err)

	assert.True(t, apperrors.Is(err, apperrors.ErrValidation))

	var appErr *apperrors.Error
	require.True(t, apperrors.As(err, &appErr))

	// Field names come from the JSON tags, not the Go field names.
	fields, ok := appErr.Details.(map[string]string)
	require.True(t, ok)
	assert.Equal(t, "is required", fields["username"])
	assert.Equal(t, "must be a valid email address", fields["email"])
}

func TestValidateUsernameCharset(t *testing.T) {
	type req struct {
		Username string `json:"username" validate:"required,username"`
	}

	v := New()
	assert.NoError(t, v.Validate(req{Username: "jo.anna_9"}))
	assert.NoError(t, v.Validate(req{Username: "Alice"}))

	err := v.Validate(req{Username: "bad name!"})
	require.Error(t, err)

	var appErr *apperrors.Error
	require.True(t, apperrors.As(err, &appErr))
	fields, ok := appErr.Details.(map[string]string)
	require.True(t, ok)
	assert.Contains(t, fields["username"], "may only contain")
}

func TestValidatePhotoTag(t *testing.T) {
	type req struct {
		Tags []string `json:"tags" validate:"dive,phototag"`
	}

	v := New()
	assert.NoError(t, v.Validate(req{Tags: []string{"beach", "summer 2025"}}))
	assert.Error(t, v.Validate(req{Tags: []string{"a,b"}}))
	assert.Error(t, v.Validate(req{Tags: []string{" padded"}}))
}

func TestValidateRespectsOmitempty(t *testing.T) {
	v := New()
	err := v.Validate(createUserRequest{Username: "alice"})
	assert.NoError(t, err)

	err = v.Validate(createUserRequest{Username: "alice", QuotaBytes: -1})
	assert.Error(t, err)
}
