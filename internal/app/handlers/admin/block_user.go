package admin

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"shortlet/internal/app/commands"
	"shortlet/internal/app/dto"
	handlersupport "shortlet/internal/app/handlers/support"
	domainauth "shortlet/internal/domain/auth"
	domainuser "shortlet/internal/domain/user"
)

const blockUserKey = "users.block"

var ErrSelfBlock = errors.New("admin: cannot block own account")

type BlockUserCommand struct {
	AdminID string
	UserID  string
	Reason  string
	Unblock bool
}

func (c BlockUserCommand) Key() string { return blockUserKey }

func (c BlockUserCommand) ActorID() string { return c.AdminID }

func (c BlockUserCommand) Validate() error {
	if strings.TrimSpace(c.UserID) == "" {
		return domainuser.ErrIDRequired
	}
	if strings.TrimSpace(c.AdminID) == strings.TrimSpace(c.UserID) {
		return ErrSelfBlock
	}
	return nil
}

// BlockUserHandler toggles the blocked flag and drops the user's sessions.
type BlockUserHandler struct {
	Users    domainuser.Repository
	Sessions domainauth.SessionStore
	Clock    handlersupport.Clock
	Logger   *slog.Logger
}

func (h *BlockUserHandler) Handle(ctx context.Context, cmd BlockUserCommand) (*dto.UserProfile, error) {
	user, err := h.Users.ByID(ctx, domainuser.ID(strings.TrimSpace(cmd.UserID)))
	if err != nil {
		return nil, err
	}
	now := h.Clock.Now()
	if cmd.Unblock {
		user.Unblock(now)
	} else {
		user.Block(cmd.Reason, now)
	}
	if err := h.Users.Save(ctx, user); err != nil {
		return nil, err
	}
	if user.Blocked && h.Sessions != nil {
		if err := h.Sessions.DeleteByUser(ctx, user.ID); err != nil {
			return nil, err
		}
	}
	if h.Logger != nil {
		h.Logger.Warn("user access changed", "user_id", user.ID, "blocked", user.Blocked, "admin_id", cmd.AdminID)
	}
	profile := dto.MapUserProfile(user)
	return &profile, nil
}

var _ commands.Handler[BlockUserCommand, *dto.UserProfile] = (*BlockUserHandler)(nil)
