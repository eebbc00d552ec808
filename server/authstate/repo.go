package authstate

import "time"

// PendingAuth tracks one outstanding authorization redirect. The state value
// keying it ties the provider callback back to the request that started it.
type PendingAuth struct {
	CreatedAt time.Time
}

type Repo interface {
	Upsert(state string, pending *PendingAuth) error
	Get(state string) (*PendingAuth, error)
	Delete(state string) error
}
