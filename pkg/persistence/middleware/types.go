// Package middleware wraps session stores with cross-cutting behavior.
package middleware

import "github.com/aretw0/servicedesk/pkg/ports"

// Middleware allows wrapping a SessionStore to add behavior.
type Middleware func(ports.SessionStore) ports.SessionStore
