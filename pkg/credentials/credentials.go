package credentials

import (
	"context"
	"time"
)

// Key identifies one cached credential.
type Key struct {
	Provider  string
	Principal string
	Kind      string
}

// Credential is opaque credential material handed to deployer invocations,
// typically environment-variable style secrets.
type Credential struct {
	Key        Key
	Properties map[string]string
}

// Collaborator is the external credential issuer. Each fetch returns fresh
// material plus the lifetime the issuer grants it.
type Collaborator interface {
	Fetch(ctx context.Context, key Key) (Credential, time.Duration, error)
}
