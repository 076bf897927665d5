package database

import "fmt"

// AlreadyConnectedError is returned when Connect is called on a handle that
// already holds a live connection.
type AlreadyConnectedError struct {
	Endpoint string
}

// NewAlreadyConnectedError creates a new AlreadyConnectedError
func NewAlreadyConnectedError(endpoint string) *AlreadyConnectedError {
	return &AlreadyConnectedError{Endpoint: endpoint}
}

// Error implements the error interface
func (e *AlreadyConnectedError) Error() string {
	return fmt.Sprintf("already connected to %s", e.Endpoint)
}

// NotConnectedError is returned when Disconnect is called before Connect.
type NotConnectedError struct{}

// NewNotConnectedError creates a new NotConnectedError
func NewNotConnectedError() *NotConnectedError {
	return &NotConnectedError{}
}

// Error implements the error interface
func (e *NotConnectedError) Error() string {
	return "not connected"
}
