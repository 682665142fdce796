package accesskit

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ValidateRole checks a role definition before it is stored.
func ValidateRole(role *Role) error {
	if err := validate.Struct(role); err != nil {
		return NewError(ErrInvalidRole, describeValidation(err)).WithRole(role.Slug)
	}
	return nil
}

// ValidatePermission checks a permission definition before it is stored.
func ValidatePermission(permission *Permission) error {
	if err := validate.Struct(permission); err != nil {
		return NewError(ErrInvalidPermission, describeValidation(err)).WithPermission(permission.Slug)
	}
	return nil
}

func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s failed %s=%s", strings.ToLower(fe.Field()), fe.Tag(), fe.Param()))
		} else {
			parts = append(parts, fmt.Sprintf("%s failed %s", strings.ToLower(fe.Field()), fe.Tag()))
		}
	}
	return strings.Join(parts, ", ")
}
