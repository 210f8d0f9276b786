// Package repository implements credential-store access over database/sql.
// Sentinel errors defined here let the service layer distinguish expected
// store conditions from faults without inspecting driver errors.
package repository

import "errors"

// ErrEmailExists is returned when an insert violates the unique index on
// users.email.
var ErrEmailExists = errors.New("email already exists")
