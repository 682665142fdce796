package accesskit

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestSentinelErrors tests that all sentinel errors are properly defined
func TestSentinelErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		msg  string
	}{
		{"ErrInvalidModel", ErrInvalidModel, "accesskit: invalid model binding"},
		{"ErrInvalidConfig", ErrInvalidConfig, "accesskit: invalid configuration"},
		{"ErrMethodNotFound", ErrMethodNotFound, "accesskit: method not found"},
		{"ErrInvalidArgument", ErrInvalidArgument, "accesskit: invalid argument"},
		{"ErrInvalidRole", ErrInvalidRole, "accesskit: invalid role"},
		{"ErrInvalidPermission", ErrInvalidPermission, "accesskit: invalid permission"},
		{"ErrNotFound", ErrNotFound, "accesskit: not found"},
		{"ErrRoleDenied", ErrRoleDenied, "accesskit: role denied"},
		{"ErrPermissionDenied", ErrPermissionDenied, "accesskit: permission denied"},
		{"ErrLevelDenied", ErrLevelDenied, "accesskit: level denied"},
		{"ErrNoUserID", ErrNoUserID, "accesskit: no user ID in context"},
		{"ErrDatabaseError", ErrDatabaseError, "accesskit: database error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.msg, tt.err.Error())
		})
	}
}

// TestError_Error tests the Error method of Error struct
func TestError_Error(t *testing.T) {
	t.Run("With message", func(t *testing.T) {
		err := NewError(ErrInvalidRole, "role slug already exists")
		assert.Equal(t, "accesskit: invalid role: role slug already exists", err.Error())
	})

	t.Run("Without message", func(t *testing.T) {
		err := &Error{Err: ErrInvalidRole}
		assert.Equal(t, "accesskit: invalid role", err.Error())
	})
}

func TestErrorContext(t *testing.T) {
	err := NewError(ErrRoleDenied, "denied").
		WithRole("admin").
		WithPermission("users.create").
		WithMethod("isAdmin").
		WithUser(42).
		WithLevel(5)

	assert.Equal(t, "admin", err.Role)
	assert.Equal(t, "users.create", err.Permission)
	assert.Equal(t, "isAdmin", err.Method)
	assert.Equal(t, int64(42), err.UserID)
	assert.Equal(t, 5, err.Level)
}

func TestErrorUnwrapAndIs(t *testing.T) {
	err := fmt.Errorf("seeding: %w", NewError(ErrNotFound, "role not found"))

	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, errors.Is(err, ErrInvalidRole))

	var e *Error
	assert.True(t, errors.As(err, &e))
	assert.Equal(t, "role not found", e.Message)
}

func TestErrorHelpers(t *testing.T) {
	assert.True(t, IsDenied(roleDenied("admin")))
	assert.True(t, IsDenied(permissionDenied("users.create")))
	assert.True(t, IsDenied(levelDenied(3)))
	assert.False(t, IsDenied(ErrNotFound))

	assert.True(t, IsInvalidModel(NewError(ErrInvalidModel, "bad")))
	assert.True(t, IsMethodNotFound(NewError(ErrMethodNotFound, "x")))
	assert.True(t, IsNotFound(NewError(ErrNotFound, "x")))
	assert.False(t, IsNotFound(nil))
}

func TestDenialMessages(t *testing.T) {
	assert.Equal(t, "you don't have a required [admin] role", roleDenied("admin").Message)
	assert.Equal(t, "you don't have a required [users.create] permission", permissionDenied("users.create").Message)
	assert.Equal(t, "you don't have a required [3] level", levelDenied(3).Message)
	assert.Equal(t, "admin", roleDenied("admin").Role)
	assert.Equal(t, 3, levelDenied(3).Level)
}
