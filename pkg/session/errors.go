package session

import "errors"

var (
	// ErrLoad indicates the store failed while reading the session record
	ErrLoad = errors.New("session.load_failed")

	// ErrSave indicates the store failed while writing the session record
	ErrSave = errors.New("session.save_failed")

	// ErrDestroy indicates the store failed while removing the session record
	ErrDestroy = errors.New("session.destroy_failed")

	// ErrCookie indicates the session cookie could not be written
	ErrCookie = errors.New("session.cookie_failed")

	// ErrIDGeneration indicates session id generation failed
	ErrIDGeneration = errors.New("session.id_generation_failed")
)
