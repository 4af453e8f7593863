package device

import "errors"

var (
	ErrDeviceClosed = errors.New("device: device has been closed")
	ErrBufferFreed  = errors.New("device: accumulation buffer has been freed")
	ErrNoScene      = errors.New("device: request carries no scene")
)
