package policies

import "context"

// StatementArchive keeps a copy of the final ledger of every closed escrow.
type StatementArchive interface {
	StoreStatement(ctx context.Context, bookingID string, statement []byte) (string, error)
}
