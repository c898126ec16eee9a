package domain

import "errors"

var (
	ErrInvalidTenant    = errors.New("invalid or missing restaurant name")
	ErrMissingTenant    = errors.New("missing table name")
	ErrInvalidRating    = errors.New("invalid rating, provide an integer between 1 and 5")
	ErrInvalidIdentity  = errors.New("invalid registration details")
	ErrUnknownToken     = errors.New("unknown token")
	ErrStoreUnavailable = errors.New("error checking user existence")
	ErrStoreWriteFailed = errors.New("error writing user record")
	ErrDuplicateRecord  = errors.New("record already exists")
	ErrRecordNotFound   = errors.New("record not found")
)
