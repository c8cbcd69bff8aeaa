package auth

import (
	"context"
	"errors"
	"strings"

	"shortlet/internal/app/middleware"
	domainuser "shortlet/internal/domain/user"
)

// ActiveUserGuard rejects commands issued by blocked users. Commands without
// an actor, such as scheduled jobs, pass through.
type ActiveUserGuard struct {
	Users domainuser.Repository
}

func (g ActiveUserGuard) Authorize(ctx context.Context, message any) error {
	actor, ok := message.(middleware.ActorCommand)
	if !ok {
		return nil
	}
	id := strings.TrimSpace(actor.ActorID())
	if id == "" {
		return nil
	}
	user, err := g.Users.ByID(ctx, domainuser.ID(id))
	if errors.Is(err, domainuser.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if user.Blocked {
		return domainuser.ErrBlocked
	}
	return nil
}

var _ middleware.Authorizer = ActiveUserGuard{}
