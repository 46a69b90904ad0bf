package session

// Action names the outcome of a commit.
type Action string

const (
	// ActionNone means the record was unchanged and nothing was written.
	ActionNone Action = "none"
	// ActionSaved means the record was written under its existing id.
	ActionSaved Action = "saved"
	// ActionDestroyed means the record was cleared and its cookie expired.
	ActionDestroyed Action = "destroyed"
	// ActionCreated means a new session was written for the first time.
	ActionCreated Action = "created"
	// ActionRotated means the record was moved to a new id.
	ActionRotated Action = "rotated"
	// ActionDropped means the id changed but there was nothing to write.
	ActionDropped Action = "dropped"
)

// Observer receives lifecycle notifications. Implementations must be safe for
// concurrent use; calls happen on the request goroutine.
type Observer interface {
	// Loaded is called after a session is attached. found reports whether
	// a stored record was read for the request cookie.
	Loaded(found bool)
	// Committed is called after a successful commit.
	Committed(action Action)
	// Failed is called when a store or cookie operation fails.
	// op is one of "get", "set", "destroy", "cookie" or "id".
	Failed(op string, err error)
}

type noopObserver struct{}

func (noopObserver) Loaded(bool) {}
func (noopObserver) Committed(Action) {}
func (noopObserver) Failed(string, error) {}
