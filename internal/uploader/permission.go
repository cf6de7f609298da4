package uploader

import "context"

// Gate decides whether an actor may initiate an upload request on a source
// item. Disallowed initiation attempts are silently ignored by the caller:
// flagging is a low-friction ambient action and surfacing an error for
// every incidental reaction would be noisy.
type Gate struct {
	routes RouteSource
	logger Logger
}

func NewGate(routes RouteSource, logger Logger) *Gate {
	return &Gate{routes: routes, logger: logger}
}

// CanInitiate allows the item's author, or any actor holding the
// configured privileged role in the item's guild. The reason is for
// logging only; it is never shown to the actor.
func (g *Gate) CanInitiate(ctx context.Context, actor Actor, item SourceItem) (bool, string) {
	if actor.ID == item.AuthorID {
		return true, "author"
	}
	role, err := g.routes.PrivilegedRole(ctx)
	if err != nil {
		g.logger.Warn("privileged role lookup failed", "error", err)
		return false, "role lookup failed"
	}
	if role == "" {
		return false, "not author and no privileged role configured"
	}
	for _, r := range actor.Roles {
		if r == role {
			return true, "privileged role"
		}
	}
	return false, "not author and not privileged"
}
