// Package sandbox abstracts the code-execution backend used by interpreter
// mode. The core only depends on the session lifecycle: create, execute,
// close.
package sandbox

import "context"

// Session is one live execution context. Conversation and interpreter state
// persist across Execute calls until Close.
type Session interface {
	// Execute answers the query, given the retrieved chunk texts as
	// context, running code in the sandbox when computation is needed.
	Execute(ctx context.Context, query string, contextTexts []string) (string, error)
	Close(ctx context.Context) error
}

// Provider creates sandbox sessions.
type Provider interface {
	CreateSession(ctx context.Context) (Session, error)
}
