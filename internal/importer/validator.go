package importer

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"student-result-system/pkg/errors"

	"github.com/go-playground/validator/v10"
)

type Validator struct {
	validate *validator.Validate
}

func NewValidator() *Validator {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Validator{validate: v}
}

// Validate checks every row and returns all failures as errors.RowErrors.
func (v *Validator) Validate(ctx context.Context, rows []Row) error {
	if len(rows) == 0 {
		return errors.ErrNoDataRows
	}

	var rowErrs errors.RowErrors
	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return err
		}
		errs, err := v.checkRow(ctx, row)
		if err != nil {
			return err
		}
		rowErrs = append(rowErrs, errs...)
	}

	if len(rowErrs) > 0 {
		return rowErrs
	}
	return nil
}

func (v *Validator) checkRow(ctx context.Context, row Row) (errors.RowErrors, error) {
	err := v.validate.StructCtx(ctx, row.Record)
	if err == nil {
		return nil, nil
	}
	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return nil, err
	}
	rowErrs := make(errors.RowErrors, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		rowErrs = append(rowErrs, errors.ValidationError{
			Row:     row.Line,
			Field:   fe.Field(),
			Value:   fe.Value(),
			Message: message(fe),
		})
	}
	return rowErrs, nil
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "gte":
		return "must be >= " + fe.Param()
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	}
	return "failed " + fe.Tag()
}
