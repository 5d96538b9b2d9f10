package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jeanchristophedibi/fanaf-back-next-sub000/internal/changefeed"
	"github.com/jeanchristophedibi/fanaf-back-next-sub000/internal/registration/models"
	"github.com/jeanchristophedibi/fanaf-back-next-sub000/pkg/platform/audit"
	"github.com/jeanchristophedibi/fanaf-back-next-sub000/pkg/requestcontext"
)

// Seed feeds registrations from the registration source into the store and
// returns how many were new.
func (e *Engine) Seed(ctx context.Context, regs []models.Registration) (int, error) {
	added, err := e.Store.Register(ctx, regs)
	if err != nil {
		return 0, err
	}
	if added > 0 {
		e.Hub.Publish(models.ChangeEvent{Kind: models.EventReload, Origin: e.Config.InstanceID})
	}

	ids := make([]string, 0, len(regs))
	for _, r := range regs {
		ids = append(ids, string(r.ID))
	}
	if err := e.Audit.Emit(ctx, audit.Event{
		Action:          string(audit.EventRegistrationsFed),
		ActorID:         requestcontext.Operator(ctx),
		RequestID:       requestcontext.RequestID(ctx),
		RegistrationIDs: ids,
		Reason:          fmt.Sprintf("%d new of %d", added, len(regs)),
	}); err != nil {
		e.Logger.WarnContext(ctx, "failed to audit registration feed", "error", err)
	}
	return added, nil
}

// ImportResult summarizes an import of externally settled payments.
type ImportResult struct {
	Receipts         []*models.Receipt
	NewlyFinalized   int
	AlreadyFinalized int
	Amount           decimal.Decimal
}

// ImportSettled finalizes payments collected outside the console. Each
// request goes through the regular finalize path; the import stops at the
// first rejected batch and reports what was committed before it.
func (e *Engine) ImportSettled(ctx context.Context, reqs []models.FinalizeRequest) (ImportResult, error) {
	res := ImportResult{Amount: decimal.Zero}
	for _, req := range reqs {
		receipt, err := e.Service.Finalize(ctx, req)
		if err != nil {
			return res, fmt.Errorf("import %s batch by %s: %w", req.PaymentMode, req.Operator, err)
		}
		res.Receipts = append(res.Receipts, receipt)
		res.NewlyFinalized += len(receipt.NewlyFinalized)
		res.AlreadyFinalized += len(receipt.AlreadyFinalized)
		res.Amount = res.Amount.Add(receipt.Amount)

		if err := e.Audit.Emit(ctx, audit.Event{
			Action:          string(audit.EventSettledImported),
			Subject:         receipt.BatchID,
			ActorID:         receipt.Operator,
			RequestID:       requestcontext.RequestID(ctx),
			PaymentMode:     string(receipt.PaymentMode),
			Channel:         string(receipt.SettlementChannel),
			Amount:          receipt.Amount.String(),
			RegistrationIDs: idStrings(receipt.NewlyFinalized),
		}); err != nil {
			e.Logger.WarnContext(ctx, "failed to audit settled import", "batch_id", receipt.BatchID, "error", err)
		}
	}
	e.Logger.InfoContext(ctx, "settled payments imported",
		"batches", len(res.Receipts),
		"newly_finalized", res.NewlyFinalized,
		"already_finalized", res.AlreadyFinalized,
		"amount", res.Amount.String(),
	)
	return res, nil
}

// Announce tells peer instances about a change made by a process that does
// not run a bridge, such as a one-shot CLI command. Without a notifier it is a
// no-op.
func (e *Engine) Announce(ctx context.Context, kind models.EventKind, batchID string, ids []models.RegistrationID) error {
	if e.notifier == nil {
		return nil
	}
	return e.notifier.Notify(ctx, changefeed.Signal{
		ID:      uuid.NewString(),
		Origin:  e.Config.InstanceID,
		Kind:    kind,
		IDs:     ids,
		BatchID: batchID,
		At:      time.Now().UTC(),
	})
}

func idStrings(ids []models.RegistrationID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = string(id)
	}
	return out
}
