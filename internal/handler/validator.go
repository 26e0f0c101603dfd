package handler

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/iliyamo/movie-booking/internal/service"
	"github.com/iliyamo/movie-booking/internal/utils"
)

// RequestValidator is the echo.Validator behind c.Validate.  Failures
// wrap service.ErrInvalidInput so writeError renders them as 400.
type RequestValidator struct {
	v *validator.Validate
}

// NewRequestValidator builds the validator installed on the echo instance.
func NewRequestValidator() *RequestValidator {
	return &RequestValidator{v: utils.NewValidator()}
}

func (rv *RequestValidator) Validate(i any) error {
	if err := rv.v.Struct(i); err != nil {
		return fmt.Errorf("%w: %s", service.ErrInvalidInput, utils.DescribeValidation(err))
	}
	return nil
}
