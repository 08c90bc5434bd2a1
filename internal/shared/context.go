package shared

import "context"

// Actor identifies the authenticated caller of a request.
type Actor struct {
	UserID int64
	Nombre string
	Role   string
}

type actorContextKey struct{}

// ContextWithActor stores the actor in context.
func ContextWithActor(ctx context.Context, actor *Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// ActorFromContext extracts the actor from context, nil when anonymous.
func ActorFromContext(ctx context.Context) *Actor {
	actor, _ := ctx.Value(actorContextKey{}).(*Actor)
	return actor
}

// ActorName returns the actor's display name or the system sentinel.
func ActorName(ctx context.Context) string {
	if actor := ActorFromContext(ctx); actor != nil && actor.Nombre != "" {
		return actor.Nombre
	}
	return "sistema"
}
