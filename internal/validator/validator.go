package validator

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/metinatakli/cinex-booking/api"
	"github.com/metinatakli/cinex-booking/internal/domain"
)

func NewValidator() *validator.Validate {
	validator := validator.New(validator.WithRequiredStructEnabled())

	validator.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}

		return name
	})

	validator.RegisterValidation("payment_method", validatePaymentMethod)
	validator.RegisterValidation("booking_sort", validateBookingSort)

	return validator
}

func validatePaymentMethod(fl validator.FieldLevel) bool {
	method, ok := fl.Field().Interface().(api.PaymentMethod)
	if !ok {
		return false
	}

	return domain.PaymentMethod(method).Valid()
}

func validateBookingSort(fl validator.FieldLevel) bool {
	if fl.Field().Kind() != reflect.String {
		return false
	}

	return domain.ValidBookingSort(fl.Field().String())
}

// ValidationMessage converts validator errors into readable messages
func ValidationMessage(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "e164":
		return "must be a phone number in international format, e.g. +491701234567"
	case "gt":
		return fmt.Sprintf("must be greater than %s", err.Param())
	case "min":
		if err.Kind() == reflect.String {
			return fmt.Sprintf("must be at least %s characters long", err.Param())
		}
		return fmt.Sprintf("must be at least %s", err.Param())
	case "max":
		if err.Kind() == reflect.String {
			return fmt.Sprintf("must be at most %s characters long", err.Param())
		}
		return fmt.Sprintf("must be at most %s", err.Param())
	case "payment_method":
		return "must be one of CARD, CASH, BANK_TRANSFER"
	case "booking_sort":
		return "must be one of createdAt, startsAt, total, optionally prefixed with '-'"
	default:
		return "is invalid"
	}
}
