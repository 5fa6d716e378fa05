package weather

import (
	"errors"
	"fmt"
)

// ErrUnavailable marks transport failures and unreadable responses.
var ErrUnavailable = errors.New("weather service unavailable")

// UpstreamError is a rejection reported inside the provider's response body.
type UpstreamError struct {
	Code    int
	Message string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("weather provider returned code %d: %s", e.Code, e.Message)
}

// notFoundMessage is used when the provider rejects a query without saying why.
const notFoundMessage = "not found"
