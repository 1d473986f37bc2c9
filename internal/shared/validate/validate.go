package validate

import (
	"errors"

	"github.com/go-playground/validator/v10"

	"github.com/techtonic-plates-blog/posts-service/internal/shared/httpx"
)

var v = validator.New()

// Struct validates the payload tags and folds failures into the shared
// validation sentinel so handlers can return the error as-is.
func Struct(s any) error {
	if err := v.Struct(s); err != nil {
		return errors.Join(httpx.ErrValidation, err)
	}
	return nil
}
