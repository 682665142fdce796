package accesskit

import (
	"errors"
	"fmt"
)

// Sentinel errors for accesskit operations.
var (
	// ErrInvalidModel is returned when a configured model binding does not name
	// a persisted entity table.
	ErrInvalidModel = errors.New("accesskit: invalid model binding")

	// ErrInvalidConfig is returned when a loaded configuration fails validation.
	ErrInvalidConfig = errors.New("accesskit: invalid configuration")

	// ErrMethodNotFound is returned when a dynamic call matches no known prefix
	// and no fallback handles it.
	ErrMethodNotFound = errors.New("accesskit: method not found")

	// ErrInvalidArgument is returned when a dynamic call receives arguments of
	// the wrong type.
	ErrInvalidArgument = errors.New("accesskit: invalid argument")

	// ErrInvalidRole is returned when a role definition fails validation.
	ErrInvalidRole = errors.New("accesskit: invalid role")

	// ErrInvalidPermission is returned when a permission definition fails validation.
	ErrInvalidPermission = errors.New("accesskit: invalid permission")

	// ErrNotFound is returned when a role or permission lookup finds nothing.
	ErrNotFound = errors.New("accesskit: not found")

	// ErrRoleDenied is returned when the user lacks a required role.
	ErrRoleDenied = errors.New("accesskit: role denied")

	// ErrPermissionDenied is returned when the user lacks a required permission.
	ErrPermissionDenied = errors.New("accesskit: permission denied")

	// ErrLevelDenied is returned when the user's level is below the required one.
	ErrLevelDenied = errors.New("accesskit: level denied")

	// ErrNoUserID is returned when the user ID cannot be resolved from a request.
	ErrNoUserID = errors.New("accesskit: no user ID in context")

	// ErrDatabaseError is returned when an administrative write fails.
	ErrDatabaseError = errors.New("accesskit: database error")
)

// Error wraps a sentinel error with additional context.
type Error struct {
	Err        error  // Underlying sentinel error
	Message    string // Additional context
	Role       string // Role reference involved (if applicable)
	Permission string // Permission reference involved (if applicable)
	Method     string // Dynamic method name (if applicable)
	UserID     int64  // User involved (if applicable)
	Level      int    // Required level (if applicable)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
	}
	return e.Err.Error()
}

// Unwrap returns the underlying error for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is checks if the error matches a target error.
func (e *Error) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewError creates a new Error with context.
func NewError(err error, message string) *Error {
	return &Error{
		Err:     err,
		Message: message,
	}
}

// WithRole adds role information to the error.
func (e *Error) WithRole(role string) *Error {
	e.Role = role
	return e
}

// WithPermission adds permission information to the error.
func (e *Error) WithPermission(permission string) *Error {
	e.Permission = permission
	return e
}

// WithMethod adds the dynamic method name to the error.
func (e *Error) WithMethod(method string) *Error {
	e.Method = method
	return e
}

// WithUser adds user information to the error.
func (e *Error) WithUser(userID int64) *Error {
	e.UserID = userID
	return e
}

// WithLevel adds the required level to the error.
func (e *Error) WithLevel(level int) *Error {
	e.Level = level
	return e
}

// IsDenied reports whether err is a role, permission or level denial.
func IsDenied(err error) bool {
	return errors.Is(err, ErrRoleDenied) ||
		errors.Is(err, ErrPermissionDenied) ||
		errors.Is(err, ErrLevelDenied)
}

// IsInvalidModel checks if an error is a model binding configuration error.
func IsInvalidModel(err error) bool {
	return errors.Is(err, ErrInvalidModel)
}

// IsMethodNotFound checks if an error comes from an unresolvable dynamic call.
func IsMethodNotFound(err error) bool {
	return errors.Is(err, ErrMethodNotFound)
}

// IsNotFound checks if an error is a role or permission lookup miss.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func roleDenied(ref string) *Error {
	return NewError(ErrRoleDenied, fmt.Sprintf("you don't have a required [%s] role", ref)).WithRole(ref)
}

func permissionDenied(ref string) *Error {
	return NewError(ErrPermissionDenied, fmt.Sprintf("you don't have a required [%s] permission", ref)).WithPermission(ref)
}

func levelDenied(level int) *Error {
	return NewError(ErrLevelDenied, fmt.Sprintf("you don't have a required [%d] level", level)).WithLevel(level)
}
