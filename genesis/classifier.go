package genesis

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"net"
	"os"
	"syscall"

	"github.com/go-playground/validator/v10"
)

// classificationRule maps one recognized native failure shape to a
// category. The table is closed: additions are deliberate, and anything
// unmatched lands in CategoryUnknown.
type classificationRule struct {
	name     string
	matches  func(error) bool
	category Category
}

// classificationTable is evaluated in order; the first match wins. Keep
// specific shapes ahead of broad interface checks.
var classificationTable = []classificationRule{
	{
		name:     "validation",
		matches:  isValidationShape,
		category: CategoryValidation,
	},
	{
		name: "permission denied",
		matches: func(err error) bool {
			return errors.Is(err, os.ErrPermission) || errors.Is(err, syscall.EACCES)
		},
		category: CategoryAuthorization,
	},
	{
		name: "resource exhausted",
		matches: func(err error) bool {
			return errors.Is(err, syscall.ENOSPC) ||
				errors.Is(err, syscall.EMFILE) ||
				errors.Is(err, syscall.ENFILE)
		},
		category: CategoryResourceExhausted,
	},
	{
		name: "deadline exceeded",
		matches: func(err error) bool {
			return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded)
		},
		category: CategoryNetwork,
	},
	{
		name: "connection failure",
		matches: func(err error) bool {
			return errors.Is(err, syscall.ECONNREFUSED) ||
				errors.Is(err, syscall.ECONNRESET) ||
				errors.Is(err, syscall.EPIPE) ||
				errors.Is(err, syscall.EHOSTUNREACH)
		},
		category: CategoryNetwork,
	},
	{
		name: "dns failure",
		matches: func(err error) bool {
			var dnsErr *net.DNSError
			return errors.As(err, &dnsErr)
		},
		category: CategoryNetwork,
	},
	{
		name: "net timeout",
		matches: func(err error) bool {
			var netErr net.Error
			return errors.As(err, &netErr) && netErr.Timeout()
		},
		category: CategoryNetwork,
	},
	{
		name: "net op failure",
		matches: func(err error) bool {
			var opErr *net.OpError
			return errors.As(err, &opErr)
		},
		category: CategoryNetwork,
	},
	{
		name: "database connection",
		matches: func(err error) bool {
			return errors.Is(err, sql.ErrConnDone) || errors.Is(err, driver.ErrBadConn)
		},
		category: CategoryInfrastructure,
	},
}

func isValidationShape(err error) bool {
	var (
		fieldErrs  validator.ValidationErrors
		invalidErr *validator.InvalidValidationError
	)

	return errors.As(err, &fieldErrs) || errors.As(err, &invalidErr)
}

// Classify returns the category for an arbitrary error according to the
// classification table, defaulting to CategoryUnknown.
func Classify(err error) Category {
	if err == nil {
		return CategoryUnknown
	}

	for _, rule := range classificationTable {
		if rule.matches(err) {
			return rule.category
		}
	}

	return CategoryUnknown
}

// Handle normalizes an arbitrary failure into a *genesis.Error. It is
// idempotent: an error that already is (or wraps) a genesis Error is
// returned unchanged. Anything else is classified through the table,
// wrapped as the cause, and enriched with the ambient operation Context
// from ctx (or a freshly minted one when none is active).
func Handle(ctx context.Context, err error) *Error {
	if err == nil {
		return nil
	}

	var gerr *Error
	if errors.As(err, &gerr) {
		return gerr
	}

	return Wrap(ctx, Classify(err), err.Error(), err)
}
