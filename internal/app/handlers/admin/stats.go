package admin

import (
	"context"
	"errors"
	"sort"

	"shortlet/internal/app/dto"
	handlersupport "shortlet/internal/app/handlers/support"
	"shortlet/internal/app/queries"
	"shortlet/internal/app/uow"
	domaindisputes "shortlet/internal/domain/disputes"
	domainescrow "shortlet/internal/domain/escrow"
	"shortlet/internal/domain/shared/money"
	domainwallet "shortlet/internal/domain/wallet"
)

const statsKey = "admin.stats"

type StatsQuery struct{}

func (StatsQuery) Key() string { return statsKey }

// StatsHandler sums escrows by state alongside the platform wallet.
type StatsHandler struct {
	UoWFactory uow.UoWFactory
	Currency   string
}

func (h *StatsHandler) Handle(ctx context.Context, _ StatsQuery) (dto.AdminStats, error) {
	unit, execCtx, cleanup, err := handlersupport.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.AdminStats{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}

	escrows, err := unit.Escrows().Find(execCtx, domainescrow.Filter{})
	if err != nil {
		return dto.AdminStats{}, err
	}
	byState := make(map[domainescrow.State]*dto.EscrowStateStats)
	pending := 0
	for _, e := range escrows {
		row, ok := byState[e.State]
		if !ok {
			row = &dto.EscrowStateStats{State: string(e.State), Funded: dto.MapMoney(money.Zero(h.Currency))}
			byState[e.State] = row
		}
		row.Count++
		row.Funded.Amount += e.Funded.Amount
		pending += len(e.PendingRefunds())
	}
	stats := dto.AdminStats{Escrows: make([]dto.EscrowStateStats, 0, len(byState)), PendingRefunds: pending}
	for _, row := range byState {
		stats.Escrows = append(stats.Escrows, *row)
	}
	sort.Slice(stats.Escrows, func(i, j int) bool { return stats.Escrows[i].State < stats.Escrows[j].State })

	open, err := unit.Disputes().Find(execCtx, domaindisputes.Filter{Status: domaindisputes.StatusOpen})
	if err != nil {
		return dto.AdminStats{}, err
	}
	stats.OpenDisputes = len(open)

	platform, err := unit.Wallets().ByOwner(execCtx, domainwallet.PlatformOwner)
	switch {
	case errors.Is(err, domainwallet.ErrWalletNotFound):
		stats.PlatformBalance = dto.MapMoney(money.Zero(h.Currency))
		stats.PlatformEarned = dto.MapMoney(money.Zero(h.Currency))
	case err != nil:
		return dto.AdminStats{}, err
	default:
		stats.PlatformBalance = dto.MapMoney(platform.Balance)
		stats.PlatformEarned = dto.MapMoney(platform.TotalEarned)
	}
	return stats, nil
}

var _ queries.Handler[StatsQuery, dto.AdminStats] = (*StatsHandler)(nil)
