package model

import "errors"

var (
	ErrJobNotFound        = errors.New("job not found")
	ErrJobTerminal        = errors.New("job already finished")
	ErrInvalidTransition  = errors.New("invalid job status transition")
	ErrProgressRegression = errors.New("job progress cannot decrease")
	ErrCounterRegression  = errors.New("job counters cannot decrease")
	ErrImmutableField     = errors.New("job identity fields cannot change")
	ErrNotStopped         = errors.New("job is not stopped")

	ErrSessionActive = errors.New("live stream already active for device")
)
