// Package apperr: iş kurallarına ait hataların kapalı taksonomisi.
// Her hata sabit bir Kind + makine kodu (Code) + kullanıcıya gösterilebilir mesaj taşır.
// HTTP durum kodu eşlemesi sadece handler katmanında (main error handler) yapılır.
package apperr

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
)

type Kind string

const (
	KindValidation    Kind = "validation"
	KindNotFound      Kind = "not_found"
	KindAuthorization Kind = "authorization"
	KindConflict      Kind = "conflict"
	KindInsufficient  Kind = "insufficient_resource"
	KindTransient     Kind = "transient_store"
)

type Error struct {
	Kind    Kind
	Code    string   // sabit makine kodu, ör: "DuplicateCode", "InsufficientStock"
	Message string   // kullanıcıya gösterilecek mesaj
	Details []string // sorunlu kod/seri no listesi vb.
}

func (e *Error) Error() string {
	if len(e.Details) == 0 {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, strings.Join(e.Details, ", "))
}

func New(kind Kind, code, message string, details ...string) *Error {
	return &Error{Kind: kind, Code: code, Message: message, Details: details}
}

func Validation(code, message string, details ...string) *Error {
	return New(KindValidation, code, message, details...)
}

func NotFound(code, message string, details ...string) *Error {
	return New(KindNotFound, code, message, details...)
}

// Authorization: şube kapsamı ihlalleri NotFound'dan ayrı döner, böylece
// istemci "yanlış id" ile "senin değil" durumlarını ayırt edebilir.
func Authorization(code, message string, details ...string) *Error {
	return New(KindAuthorization, code, message, details...)
}

func Conflict(code, message string, details ...string) *Error {
	return New(KindConflict, code, message, details...)
}

func Insufficient(code, message string, details ...string) *Error {
	return New(KindInsufficient, code, message, details...)
}

func Transient(code, message string, details ...string) *Error {
	return New(KindTransient, code, message, details...)
}

// As: errors.As kısayolu.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// HTTPStatus: Kind -> HTTP durum kodu. Transient hatalar istemci tarafından
// tekrar denenebilir, 503 döner.
func HTTPStatus(k Kind) int {
	switch k {
	case KindValidation:
		return fiber.StatusBadRequest
	case KindNotFound:
		return fiber.StatusNotFound
	case KindAuthorization:
		return fiber.StatusForbidden
	case KindConflict:
		return fiber.StatusConflict
	case KindInsufficient:
		return fiber.StatusUnprocessableEntity
	case KindTransient:
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}
