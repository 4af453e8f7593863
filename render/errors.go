package render

import "errors"

var (
	ErrNoDevices        = errors.New("render: no devices attached to session")
	ErrNoScene          = errors.New("render: no scene attached to session")
	ErrNotConfigured    = errors.New("render: session must be reset with buffer parameters first")
	ErrNotStarted       = errors.New("render: session has not been started")
	ErrSessionRunning   = errors.New("render: operation not allowed while session is running")
	ErrSessionDestroyed = errors.New("render: session has been destroyed")
	ErrSessionCancelled = errors.New("render: session cancelled before reset could apply")
	ErrResultSize       = errors.New("render: result buffer does not match bake pixel count")
)
