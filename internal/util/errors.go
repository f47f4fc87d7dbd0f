package util

import "errors"

var (
	ErrDocumentCorrupt   = errors.New("document cannot be parsed")
	ErrNoExtractableText = errors.New("no extractable text found in PDF")

	ErrNotFound        = errors.New("record not found")
	ErrEmptySelection  = errors.New("selection is empty or collapsed")
	ErrOutsidePage     = errors.New("selection extends outside the page")
	ErrPageNotLaidOut  = errors.New("page dimensions are not known yet")
	ErrSessionNotFound = errors.New("viewer session not found")
)
