package explorer

import (
	"errors"
	"fmt"
)

// ErrAddressNotFound marks an address with no on-chain history.
var ErrAddressNotFound = errors.New("address not found")

// RejectedError is an application level rejection of a broadcast. Error
// returns the node message verbatim.
type RejectedError struct {
	Code    int
	Message string
}

func (e *RejectedError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("transaction rejected with code %d", e.Code)
	}
	return e.Message
}
