package tui

import "errors"

// ErrMissingManager is returned when the pipeline manager is not provided.
var ErrMissingManager = errors.New("tui: manager is required")

// ErrInvalidPorts is returned when ports validation fails.
var ErrInvalidPorts = errors.New("tui: invalid ports configuration")
