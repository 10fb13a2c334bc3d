package weather

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned by a Store when no aggregate exists for a key.
	ErrNotFound = errors.New("no daily aggregate found")

	// ErrDuplicate is returned by a Store when an insert hits the (city, date) unique key.
	ErrDuplicate = errors.New("daily aggregate already exists")

	// ErrMalformedResponse is returned by providers when a payload lacks required fields.
	ErrMalformedResponse = errors.New("malformed provider response")
)

// FetchError reports a failed provider call for one city.
type FetchError struct {
	City     string
	Provider string
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s from %s: %v", e.City, e.Provider, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// PersistError reports a storage failure while merging one reading.
type PersistError struct {
	City string
	Date string
	Op   string
	Err  error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("%s daily aggregate %s/%s: %v", e.Op, e.City, e.Date, e.Err)
}

func (e *PersistError) Unwrap() error { return e.Err }
