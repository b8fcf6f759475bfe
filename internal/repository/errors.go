// Package repository provides data access for the credential store (MySQL)
// and the token ledger (Redis).  Sentinel errors defined here let higher
// layers distinguish failure scenarios without string matching.
package repository

import "errors"

// ErrEmailExists is returned when an insert violates the unique index on
// users.email.  The service layer translates this into an ALREADY_EXISTS
// error whose message depends on the existing account's provider.
var ErrEmailExists = errors.New("email already exists")

// ErrNotFound is returned when a referenced user row does not exist.
var ErrNotFound = errors.New("not found")
