// Package repository implements data access over MySQL.  This file
// defines sentinel error values shared across repositories so that
// the service layer can distinguish failure scenarios without
// string matching: a missing row, a duplicate registration, a full
// event, and so on.
package repository

import "errors"

// ErrEventNotFound is returned when no event row matches the id.
var ErrEventNotFound = errors.New("event not found")

// ErrRegistrationNotFound is returned when no registration row
// matches the id.
var ErrRegistrationNotFound = errors.New("registration not found")

// ErrUserNotFound is returned when no user row matches the id.
var ErrUserNotFound = errors.New("user not found")

// ErrDuplicate is returned when an insert violates a uniqueness
// constraint, such as registering the same participant twice for
// one event or reusing a confirmation code.
var ErrDuplicate = errors.New("duplicate")

// ErrCapacityFull is returned when a registration insert would
// exceed the event's capacity.
var ErrCapacityFull = errors.New("event capacity reached")

// ErrEmailExists is returned when creating a user with an email
// that is already taken.
var ErrEmailExists = errors.New("email already exists")
