package domain

import "errors"

// Sentinel errors shared by the stores and services. Lookups that find
// nothing return empty results, not ErrNotFound; the sentinel is for
// operations addressed to a specific record that must exist.
var (
	ErrNotFound      = errors.New("not found")
	ErrNotPending    = errors.New("donation is not pending")
	ErrAlreadyLinked = errors.New("donation is already linked to a donor")
	ErrSelfMerge     = errors.New("cannot merge a donor into itself")
	ErrNoSecondaries = errors.New("merge requires at least one secondary donor")
	ErrDonorMissing  = errors.New("donor does not exist")
)
