package lavalink

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrNotConnected = errors.New("lavalink session not ready")
)

// APIError es una respuesta no-2xx del nodo.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("lavalink api status %d: %s", e.Status, e.Body)
}

// LoadError es el loadType "error" de /loadtracks.
type LoadError struct {
	Message  string
	Severity string
	Cause    string
}

func (e *LoadError) Error() string {
	if e.Cause != "" {
		return fmt.Sprintf("load failed (%s): %s: %s", e.Severity, e.Message, e.Cause)
	}
	return fmt.Sprintf("load failed (%s): %s", e.Severity, e.Message)
}
