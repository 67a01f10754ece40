package auth

import "context"

// Actor identifies who performed an operation. It is supplied by the caller
// and passed explicitly into every core input; the engine never reads request
// state on its own.
type Actor struct {
	UserID string
	Role   string
}

type ctxKey struct{}

// WithActor stores the actor for the transport middleware; handlers pull it
// back out and copy it into input DTOs.
func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, ctxKey{}, actor)
}

func ActorFromContext(ctx context.Context) Actor {
	if actor, ok := ctx.Value(ctxKey{}).(Actor); ok {
		return actor
	}
	return Actor{UserID: "system"}
}
