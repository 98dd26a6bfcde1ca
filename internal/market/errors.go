package market

import (
	"context"
	"errors"
)

var (
	// ErrNetwork: the request could not complete.
	ErrNetwork = errors.New("network failure")
	// ErrResponse: non-2xx status or a body that does not decode.
	ErrResponse = errors.New("response failure")
	// ErrStorage: durable read or write of the watchlist failed.
	ErrStorage = errors.New("storage failure")
)

// ErrorKind classifies err for log attributes and metric labels.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, ErrNetwork):
		return "network"
	case errors.Is(err, ErrResponse):
		return "response"
	case errors.Is(err, ErrStorage):
		return "storage"
	default:
		return "unknown"
	}
}
