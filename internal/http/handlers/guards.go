package handlers

import (
	"net/http"

	"github.com/hongminglow/portfolio-be/internal/models"
)

// Middleware is a standard net/http middleware.
type Middleware = func(http.Handler) http.Handler

// Guards builds the per-route middleware chains. A nil field is skipped.
type Guards struct {
	Authenticate Middleware
	Require      func(perms ...models.Permission) Middleware
	LoginLimit   Middleware
}

// authed requires a bearer token and, when perms are given, each of them.
func (g Guards) authed(perms ...models.Permission) []Middleware {
	var chain []Middleware
	if g.Authenticate != nil {
		chain = append(chain, g.Authenticate)
	}
	if len(perms) > 0 && g.Require != nil {
		chain = append(chain, g.Require(perms...))
	}
	return chain
}

func (g Guards) login() []Middleware {
	if g.LoginLimit == nil {
		return nil
	}
	return []Middleware{g.LoginLimit}
}
