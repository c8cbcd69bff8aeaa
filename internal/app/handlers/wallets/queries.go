package wallets

import (
	"context"
	"errors"
	"strings"

	"shortlet/internal/app/dto"
	handlersupport "shortlet/internal/app/handlers/support"
	"shortlet/internal/app/queries"
	"shortlet/internal/app/uow"
	domainwallet "shortlet/internal/domain/wallet"
)

const (
	getWalletKey   = "wallets.get"
	listPayoutsKey = "wallets.payouts"
	payoutsLimit   = 100
)

type GetWalletQuery struct {
	OwnerID string
}

func (q GetWalletQuery) Key() string { return getWalletKey }

// GetWalletHandler returns the owner's wallet, or an empty one when nothing
// was ever credited.
type GetWalletHandler struct {
	UoWFactory uow.UoWFactory
	Currency   string
	Clock      handlersupport.Clock
}

func (h *GetWalletHandler) Handle(ctx context.Context, q GetWalletQuery) (dto.Wallet, error) {
	owner := strings.TrimSpace(q.OwnerID)
	if owner == "" {
		return dto.Wallet{}, errRealtorRequired
	}
	unit, execCtx, cleanup, err := handlersupport.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.Wallet{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	wallet, err := unit.Wallets().ByOwner(execCtx, owner)
	if errors.Is(err, domainwallet.ErrWalletNotFound) {
		kind := domainwallet.KindRealtor
		if owner == domainwallet.PlatformOwner {
			kind = domainwallet.KindPlatform
		}
		wallet = domainwallet.New(owner, kind, h.Currency, h.Clock.Now())
	} else if err != nil {
		return dto.Wallet{}, err
	}
	return dto.MapWallet(wallet), nil
}

type ListPayoutsQuery struct {
	RealtorID string
}

func (q ListPayoutsQuery) Key() string { return listPayoutsKey }

type ListPayoutsHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *ListPayoutsHandler) Handle(ctx context.Context, q ListPayoutsQuery) (dto.PayoutCollection, error) {
	unit, execCtx, cleanup, err := handlersupport.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.PayoutCollection{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	found, err := unit.Payouts().ListByRealtor(execCtx, strings.TrimSpace(q.RealtorID), payoutsLimit)
	if err != nil {
		return dto.PayoutCollection{}, err
	}
	items := make([]dto.Payout, 0, len(found))
	for _, p := range found {
		items = append(items, dto.MapPayout(p))
	}
	return dto.PayoutCollection{Items: items}, nil
}

var _ queries.Handler[GetWalletQuery, dto.Wallet] = (*GetWalletHandler)(nil)
var _ queries.Handler[ListPayoutsQuery, dto.PayoutCollection] = (*ListPayoutsHandler)(nil)
