package domain

import "errors"

var (
	// ErrOutOfRange is returned when a question index is outside the catalog.
	ErrOutOfRange = errors.New("question index out of range")
	// ErrInvalidOption indicates a submitted option index is invalid for its question.
	ErrInvalidOption = errors.New("option not found")
	// ErrEmptyTally is returned when resolving a tally with no categories.
	ErrEmptyTally = errors.New("tally has no categories")
	// ErrInvalidCatalog indicates catalog content failed validation.
	ErrInvalidCatalog = errors.New("invalid catalog")
	// ErrCatalogNotFound indicates the catalog content could not be loaded.
	ErrCatalogNotFound = errors.New("catalog not found")
	// ErrInvalidEvent indicates an event without a participant or with an unknown kind.
	ErrInvalidEvent = errors.New("invalid event")
	// ErrImageNotFound indicates no image exists for a category.
	ErrImageNotFound = errors.New("image not found")
)
