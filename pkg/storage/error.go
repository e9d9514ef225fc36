package storage

import (
	"errors"
	"fmt"
)

var (
	// ErrRead matches every ReadError.
	ErrRead = errors.New("store read failed")

	// ErrWrite matches every WriteError.
	ErrWrite = errors.New("store write failed")
)

// NotFoundError is returned when a fact doesn't exist in the store.
type NotFoundError struct {
	ID string
}

func (e NotFoundError) Error() string {
	if e.ID == "" {
		return "fact not found"
	}

	return "fact not found: " + e.ID
}

// ReadError wraps a failure on the read path.
type ReadError struct {
	Op  string
	Err error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrRead, e.Op, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }

// Is matches ErrRead.
func (e *ReadError) Is(target error) bool { return target == ErrRead }

// WriteError wraps a failure on the write path.
type WriteError struct {
	Op  string
	Err error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrWrite, e.Op, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// Is matches ErrWrite.
func (e *WriteError) Is(target error) bool { return target == ErrWrite }

// Read wraps err as a ReadError for op. A nil err stays nil.
func Read(op string, err error) error {
	if err == nil {
		return nil
	}
	var re *ReadError
	if errors.As(err, &re) {
		return err
	}
	return &ReadError{Op: op, Err: err}
}

// Write wraps err as a WriteError for op. A nil err stays nil.
func Write(op string, err error) error {
	if err == nil {
		return nil
	}
	var we *WriteError
	if errors.As(err, &we) {
		return err
	}
	return &WriteError{Op: op, Err: err}
}
