package store

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// Kind is the closed set of failures the engines branch on.
type Kind int

const (
	KindTransport Kind = iota
	KindNotFound
	KindDuplicate
	KindCooldown
	KindValidation
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not found"
	case KindDuplicate:
		return "duplicate"
	case KindCooldown:
		return "cooldown active"
	case KindValidation:
		return "validation"
	default:
		return "transport"
	}
}

const (
	pgUniqueViolation = "23505"
	pgRaiseException  = "P0001"

	// Raised by the anonymous like window trigger.
	cooldownMarker = "24 saat içinde"
)

type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func NotFound(op string) error {
	return &Error{Kind: KindNotFound, Op: op}
}

func Validation(op, reason string) error {
	return &Error{Kind: KindValidation, Op: op, Err: errors.New(reason)}
}

// Classify wraps a raw driver or gorm error into a tagged *Error.
func Classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var tagged *Error
	if errors.As(err, &tagged) {
		return err
	}
	kind := KindTransport
	var pgErr *pgconn.PgError
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		kind = KindNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		kind = KindDuplicate
	case errors.As(err, &pgErr):
		switch {
		case pgErr.Code == pgUniqueViolation:
			kind = KindDuplicate
		case pgErr.Code == pgRaiseException, strings.Contains(pgErr.Message, cooldownMarker):
			kind = KindCooldown
		}
	case strings.Contains(err.Error(), cooldownMarker):
		kind = KindCooldown
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf reports the kind of a tagged error. Untagged errors are transport
// failures.
func KindOf(err error) Kind {
	var tagged *Error
	if errors.As(err, &tagged) {
		return tagged.Kind
	}
	return KindTransport
}

func IsNotFound(err error) bool {
	return err != nil && KindOf(err) == KindNotFound
}

func IsDuplicate(err error) bool {
	return err != nil && KindOf(err) == KindDuplicate
}

func IsCooldown(err error) bool {
	return err != nil && KindOf(err) == KindCooldown
}

func IsValidation(err error) bool {
	return err != nil && KindOf(err) == KindValidation
}
