package driven

import "context"

// Authorizer is the allow/deny gate in front of the batch surfaces.
type Authorizer interface {
	// Authorize returns nil when the credential is accepted,
	// domain.ErrAuthRequired when it is empty and domain.ErrAuthInvalid otherwise.
	Authorize(ctx context.Context, credential string) error
}
