// Each entity store exclusively owns its map of records. Cross store
// references are by identifier only - no two stores ever hold the
// same mutable instance.
package store

import (
	"fmt"

	"github.com/argussoc/console/api"
)

// Structured error captured by a store when an action fails. Prior
// cache state is always left untouched; the GUI shows the error as a
// dismissible notification and may clear it explicitly.
type StoreError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (self *StoreError) Error() string {
	return fmt.Sprintf("%s: %s", self.Code, self.Message)
}

// Translate any failure into the {code, message} shape. API errors
// keep their server assigned code.
func NewStoreError(err error) *StoreError {
	api_err, ok := err.(*api.APIError)
	if ok {
		return &StoreError{
			Code:    api_err.Code,
			Message: api_err.Message,
		}
	}
	return &StoreError{
		Code:    "INTERNAL_ERROR",
		Message: err.Error(),
	}
}

// Total pages for a given total count. Out of range pages are not
// clamped by the stores - the caller must not request one.
func TotalPages(total, page_size int) int {
	if page_size <= 0 {
		return 0
	}
	return (total + page_size - 1) / page_size
}
