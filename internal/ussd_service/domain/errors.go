package domain

import "errors"

var (
	// ErrDuplicateSession is returned when creating a session whose
	// aggregator identifier already exists (the first-contact race).
	ErrDuplicateSession = errors.New("session with this session_id already exists")

	// ErrDuplicateSubscriber is returned when two requests race to create
	// the same phone number.
	ErrDuplicateSubscriber = errors.New("subscriber with this phone number already exists")

	// ErrSessionNotFound indicates a lookup by session identifier matched nothing.
	ErrSessionNotFound = errors.New("session not found")
)
