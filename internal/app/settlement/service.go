// Package settlement moves money out of an escrow once the aggregate has
// decided where it goes: wallet credits for realtor and platform entries,
// gateway refunds for guest entries.
package settlement

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"shortlet/internal/app/dto"
	handlersupport "shortlet/internal/app/handlers/support"
	"shortlet/internal/app/outbox"
	"shortlet/internal/app/policies"
	"shortlet/internal/app/uow"
	domainescrow "shortlet/internal/domain/escrow"
	domainwallet "shortlet/internal/domain/wallet"
)

type Service struct {
	Gateway policies.PaymentGateway
	Archive policies.StatementArchive
	Split   domainescrow.FeeSplit
	Outbox  outbox.Outbox
	Encoder outbox.EventEncoder
	Logger  *slog.Logger
}

// FeeSplit returns the configured split or the 90/10 default.
func (s *Service) FeeSplit() domainescrow.FeeSplit {
	if s.Split.RealtorShare.IsZero() {
		return domainescrow.DefaultFeeSplit()
	}
	return s.Split
}

// Apply finishes a transition that produced created entries: realtor and
// platform shares are credited, guest refunds are pushed to the gateway, and
// the escrow is saved together with its events.
func (s *Service) Apply(ctx context.Context, unit uow.UnitOfWork, escrow *domainescrow.Escrow, created []domainescrow.LedgerEntry, now time.Time) error {
	if err := s.credit(ctx, unit, escrow, created, now); err != nil {
		return err
	}
	s.Disburse(ctx, escrow, now)
	return s.Save(ctx, unit, escrow)
}

// Save persists the escrow and its events, archiving the statement when it closes.
func (s *Service) Save(ctx context.Context, unit uow.UnitOfWork, escrow *domainescrow.Escrow) error {
	if err := unit.Escrows().Save(ctx, escrow); err != nil {
		return err
	}
	if err := handlersupport.RecordEvents(ctx, s.Outbox, s.Encoder, escrow); err != nil {
		return err
	}
	if escrow.Closed() {
		s.archive(ctx, escrow)
	}
	return nil
}

// Disburse sends every pending guest refund through the gateway. Only a
// successful answer completes an entry; errors, rejections and answers still
// pending at the gateway leave it pending for the retry job under the same
// reference. It never fails the caller.
func (s *Service) Disburse(ctx context.Context, escrow *domainescrow.Escrow, now time.Time) int {
	if s.Gateway == nil {
		return 0
	}
	completed := 0
	for _, entry := range escrow.PendingRefunds() {
		res, err := s.Gateway.Refund(ctx, policies.RefundRequest{
			Reference:        entry.Key,
			PaymentReference: escrow.PaymentReference,
			Amount:           entry.Amount,
			Reason:           string(entry.Kind),
		})
		if err == nil && res.Status != policies.GatewaySuccess {
			err = fmt.Errorf("%w: refund %s answered %s", policies.ErrGateway, entry.Key, res.Status)
		}
		if err != nil {
			_ = escrow.FailEntry(entry.Key, err.Error(), now)
			s.logger().Warn("refund not settled", "booking_id", escrow.BookingID, "entry", entry.Key, "attempt", entry.Attempts+1, "error", err)
			continue
		}
		if err := escrow.CompleteEntry(entry.Key, res.GatewayRef, now); err != nil {
			s.logger().Error("refund completion failed", "booking_id", escrow.BookingID, "entry", entry.Key, "error", err)
			continue
		}
		completed++
		s.logger().Info("refund disbursed", "booking_id", escrow.BookingID, "entry", entry.Key, "amount", entry.Amount.Amount, "gateway_ref", res.GatewayRef)
	}
	return completed
}

func (s *Service) credit(ctx context.Context, unit uow.UnitOfWork, escrow *domainescrow.Escrow, created []domainescrow.LedgerEntry, now time.Time) error {
	touched := make(map[string]*domainwallet.Wallet)
	var order []string
	for _, entry := range domainescrow.Credits(created) {
		owner, kind := escrow.RealtorID, domainwallet.KindRealtor
		if entry.Party == domainescrow.PartyPlatform {
			owner, kind = domainwallet.PlatformOwner, domainwallet.KindPlatform
		}
		wallet, ok := touched[owner]
		if !ok {
			loaded, err := unit.Wallets().ByOwner(ctx, owner)
			switch {
			case errors.Is(err, domainwallet.ErrWalletNotFound):
				loaded = domainwallet.New(owner, kind, entry.Amount.Currency, now)
			case err != nil:
				return err
			}
			wallet = loaded
		}
		applied, err := wallet.Credit(entry.Amount, entry.Key, now)
		if err != nil {
			return fmt.Errorf("credit %s wallet: %w", owner, err)
		}
		if applied && !ok {
			touched[owner] = wallet
			order = append(order, owner)
		}
	}
	for _, owner := range order {
		wallet := touched[owner]
		if err := unit.Wallets().Save(ctx, wallet); err != nil {
			return err
		}
		if err := handlersupport.RecordEvents(ctx, s.Outbox, s.Encoder, wallet); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) archive(ctx context.Context, escrow *domainescrow.Escrow) {
	if s.Archive == nil {
		return
	}
	statement, err := json.Marshal(dto.MapEscrow(escrow))
	if err != nil {
		s.logger().Error("statement encode failed", "booking_id", escrow.BookingID, "error", err)
		return
	}
	location, err := s.Archive.StoreStatement(ctx, escrow.BookingID, statement)
	if err != nil {
		s.logger().Warn("statement archive failed", "booking_id", escrow.BookingID, "error", err)
		return
	}
	s.logger().Info("settlement statement archived", "booking_id", escrow.BookingID, "location", location, "state", escrow.State)
}

func (s *Service) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}
