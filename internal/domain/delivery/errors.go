// internal/domain/delivery/errors.go
package delivery

import "errors"

var (
	ErrInvalidFrequency = errors.New("invalid delivery frequency")
	ErrInvalidBound     = errors.New("exactly one positive delivery count or duration in months is required")
	ErrInvalidTimestamp = errors.New("invalid reference timestamp")
)
