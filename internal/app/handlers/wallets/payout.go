package wallets

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"shortlet/internal/app/commands"
	"shortlet/internal/app/dto"
	handlersupport "shortlet/internal/app/handlers/support"
	"shortlet/internal/app/outbox"
	"shortlet/internal/app/policies"
	"shortlet/internal/app/uow"
	"shortlet/internal/domain/shared/money"
	domainwallet "shortlet/internal/domain/wallet"
)

const (
	requestPayoutKey = "wallets.payout"
	settlePayoutKey  = "wallets.settle_payout"
	payoutReason     = "wallet withdrawal"
)

var (
	errRealtorRequired  = errors.New("realtor id is required")
	errPayoutIDRequired = errors.New("payout id is required")
)

type RequestPayoutCommand struct {
	RealtorID       string
	Amount          int64
	RecipientCode   string
	IdempotencyKeyV string
}

func (c RequestPayoutCommand) Key() string { return requestPayoutKey }

func (c RequestPayoutCommand) IdempotencyKey() string { return c.IdempotencyKeyV }

func (c RequestPayoutCommand) ResultPrototype() any { return &dto.Payout{} }

func (c RequestPayoutCommand) ActorID() string { return c.RealtorID }

func (c RequestPayoutCommand) Validate() error {
	if strings.TrimSpace(c.RealtorID) == "" {
		return errRealtorRequired
	}
	if c.Amount <= 0 {
		return domainwallet.ErrInvalidAmount
	}
	if strings.TrimSpace(c.RecipientCode) == "" {
		return domainwallet.ErrRecipientRequired
	}
	return nil
}

// RequestPayoutHandler debits the realtor wallet and records a PENDING payout.
// No money moves here: the transfer is sent by SettlePayoutHandler once the
// debit is committed, always under the payout id as reference.
type RequestPayoutHandler struct {
	Outbox  outbox.Outbox
	Encoder outbox.EventEncoder
	Clock   handlersupport.Clock
	Logger  *slog.Logger
}

func (h *RequestPayoutHandler) Handle(ctx context.Context, cmd RequestPayoutCommand) (*dto.Payout, error) {
	unit, ok := uow.FromContext(ctx)
	if !ok {
		return nil, uow.ErrUnitOfWorkMissing
	}
	realtorID := strings.TrimSpace(cmd.RealtorID)
	wallet, err := unit.Wallets().ByOwner(ctx, realtorID)
	if errors.Is(err, domainwallet.ErrWalletNotFound) {
		return nil, domainwallet.ErrInsufficientFunds
	}
	if err != nil {
		return nil, err
	}

	now := h.Clock.Now()
	amount := money.Money{Amount: cmd.Amount, Currency: wallet.Balance.Currency}
	if err := wallet.Debit(amount, now); err != nil {
		return nil, err
	}
	payout, err := domainwallet.NewPayout("PO-"+uuid.NewString(), realtorID, cmd.RecipientCode, amount, now)
	if err != nil {
		return nil, err
	}
	if err := unit.Wallets().Save(ctx, wallet); err != nil {
		return nil, err
	}
	if err := unit.Payouts().Save(ctx, payout); err != nil {
		return nil, err
	}
	if err := handlersupport.RecordEvents(ctx, h.Outbox, h.Encoder, payout); err != nil {
		return nil, err
	}
	if h.Logger != nil {
		h.Logger.Info("payout requested", "payout_id", payout.ID, "realtor_id", realtorID, "amount", amount.Amount)
	}
	result := dto.MapPayout(payout)
	return &result, nil
}

type SettlePayoutCommand struct {
	PayoutID string
}

func (c SettlePayoutCommand) Key() string { return settlePayoutKey }

func (c SettlePayoutCommand) Validate() error {
	if strings.TrimSpace(c.PayoutID) == "" {
		return errPayoutIDRequired
	}
	return nil
}

// SettlePayoutHandler asks the gateway again about a payout still PENDING.
// The transfer reference is the payout id so the gateway never pays twice.
type SettlePayoutHandler struct {
	Gateway policies.PaymentGateway
	Outbox  outbox.Outbox
	Encoder outbox.EventEncoder
	Clock   handlersupport.Clock
	Logger  *slog.Logger
}

func (h *SettlePayoutHandler) Handle(ctx context.Context, cmd SettlePayoutCommand) (*dto.Payout, error) {
	unit, ok := uow.FromContext(ctx)
	if !ok {
		return nil, uow.ErrUnitOfWorkMissing
	}
	payout, err := unit.Payouts().ByID(ctx, strings.TrimSpace(cmd.PayoutID))
	if err != nil {
		return nil, err
	}
	if payout.Status != domainwallet.PayoutPending {
		result := dto.MapPayout(payout)
		return &result, nil
	}
	wallet, err := unit.Wallets().ByOwner(ctx, payout.RealtorID)
	if err != nil {
		return nil, err
	}

	settle(ctx, h.Gateway, h.Logger, wallet, payout, h.Clock)

	if payout.Status == domainwallet.PayoutFailed {
		if err := unit.Wallets().Save(ctx, wallet); err != nil {
			return nil, err
		}
	}
	if err := unit.Payouts().Save(ctx, payout); err != nil {
		return nil, err
	}
	if err := handlersupport.RecordEvents(ctx, h.Outbox, h.Encoder, payout); err != nil {
		return nil, err
	}
	result := dto.MapPayout(payout)
	return &result, nil
}

// settle pushes a pending payout through the gateway. Only a definite
// rejection fails the payout and restores the wallet; transport errors and
// pending answers leave it PENDING so the same reference is asked again.
func settle(ctx context.Context, gateway policies.PaymentGateway, logger *slog.Logger, wallet *domainwallet.Wallet, payout *domainwallet.Payout, clock handlersupport.Clock) {
	res, err := gateway.Transfer(ctx, policies.TransferRequest{
		Reference:     payout.ID,
		RecipientCode: payout.RecipientCode,
		Amount:        payout.Amount,
		Reason:        payoutReason,
	})
	now := clock.Now()
	switch {
	case err != nil:
		_ = payout.NoteAttempt(err.Error(), now)
		if logger != nil {
			logger.Warn("payout transfer inconclusive", "payout_id", payout.ID, "realtor_id", payout.RealtorID, "attempts", payout.Attempts, "error", err)
		}
	case res.Status == policies.GatewayFailed || res.Status == policies.GatewayAbandoned:
		if markErr := payout.MarkFailed(string(res.Status), now); markErr != nil {
			return
		}
		_ = wallet.Restore(payout.Amount, now)
		if logger != nil {
			logger.Warn("payout transfer failed", "payout_id", payout.ID, "realtor_id", payout.RealtorID, "status", res.Status)
		}
	case res.Status == policies.GatewaySuccess:
		_ = payout.MarkPaid(res.GatewayRef, now)
	default:
		_ = payout.NoteAttempt("gateway status "+string(res.Status), now)
	}
}

var _ commands.Handler[RequestPayoutCommand, *dto.Payout] = (*RequestPayoutHandler)(nil)
var _ commands.Handler[SettlePayoutCommand, *dto.Payout] = (*SettlePayoutHandler)(nil)
