package inventory

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Outcome describes a finished transfer request, successful or not.
type Outcome struct {
	Request  TransferRequest
	Record   *TransferRecord
	Source   StockRecord
	Dest     StockRecord
	Phase    Phase
	// Reached is the last lifecycle phase passed before the final one.
	Reached  Phase
	Err      error
	Duration time.Duration
}

// Observer is notified after every transfer request completes. Observers run
// after the transaction is closed and cannot affect its result.
type Observer interface {
	TransferFinished(ctx context.Context, out Outcome)
}

// Coordinator moves stock of one item between two locations atomically.
type Coordinator struct {
	ledger    *Ledger
	history   *History
	items     ItemResolver
	locations LocationResolver
	observers []Observer
	log       *slog.Logger
	now       func() time.Time
}

func NewCoordinator(ledger *Ledger, history *History, items ItemResolver, locations LocationResolver,
	log *slog.Logger, observers ...Observer) *Coordinator {

	return &Coordinator{
		ledger:    ledger,
		history:   history,
		items:     items,
		locations: locations,
		observers: observers,
		log:       log,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Transfer moves req.Quantity units of req.ItemCode from the source to the
// destination location and returns the logged record.
//
// All preconditions are checked before anything is written. The decrement,
// the increment (or creation) of the destination and the history entry are
// committed together or not at all.
func (c *Coordinator) Transfer(ctx context.Context, req TransferRequest) (rec TransferRecord, err error) {
	start := c.now()
	out := Outcome{Request: req, Phase: PhaseReceived}
	defer func() {
		out.Err = err
		out.Reached = out.Phase
		out.Duration = c.now().Sub(start)
		switch {
		case err == nil:
			out.Phase = PhaseConfirmed
			out.Record = &rec
		case isRejection(err):
			out.Phase = PhaseRejected
		default:
			out.Phase = PhaseAborted
		}
		c.finish(ctx, out)
	}()

	req = req.normalized()
	out.Request = req
	if err = req.Validate(); err != nil {
		return TransferRecord{}, err
	}

	names, err := c.precheck(ctx, req)
	if err != nil {
		return TransferRecord{}, err
	}
	out.Phase = PhaseValidated

	srcKey, dstKey := req.sourceKey(), req.destKey()
	err = c.ledger.inTx(ctx, func(ctx context.Context, tx Tx) error {
		locked, err := c.ledger.lock(ctx, tx, srcKey, dstKey)
		if err != nil {
			return err
		}
		out.Phase = PhaseLocked

		// The unlocked pre-check may be stale by now; apply re-checks
		// existence and quantity against the locked rows.
		src, err := c.ledger.apply(ctx, tx, locked, srcKey, -req.Quantity)
		if err != nil {
			return err
		}
		dst, err := c.ledger.apply(ctx, tx, locked, dstKey, req.Quantity)
		if err != nil {
			return err
		}
		out.Phase = PhaseMutated
		out.Source, out.Dest = src, dst

		next := TransferRecord{
			ID:                 uuid.NewString(),
			ItemCode:           req.ItemCode,
			ItemName:           names.item,
			SourceLocation:     req.SourceLocation,
			SourceLocationName: names.source,
			DestLocation:       req.DestLocation,
			DestLocationName:   names.dest,
			Quantity:           req.Quantity,
			Initiator:          req.Initiator,
			CreatedAt:          c.now(),
		}
		if err := c.history.Append(ctx, tx, next); err != nil {
			return err
		}
		out.Phase = PhaseLogged
		rec = next
		return nil
	})
	if err != nil {
		return TransferRecord{}, err
	}
	return rec, nil
}

type displayNames struct {
	item, source, dest string
}

// precheck runs the unlocked checks: the source record exists and holds
// enough stock, and the item is known to the catalog. It also resolves the
// display names, so no registry or cache call happens while locks are held.
func (c *Coordinator) precheck(ctx context.Context, req TransferRequest) (displayNames, error) {
	var names displayNames
	src, err := c.ledger.Get(ctx, req.ItemCode, req.SourceLocation)
	if err != nil {
		return names, err
	}
	if src == nil {
		return names, newError(KindRecordNotFound, "no stock of %s at source location %s", req.ItemCode, req.SourceLocation)
	}
	if src.Quantity < req.Quantity {
		return names, newError(KindInsufficientStock,
			"insufficient stock of %s at %s: available %d, requested %d",
			req.ItemCode, req.SourceLocation, src.Quantity, req.Quantity)
	}

	name, ok, err := c.items.ItemName(ctx, req.ItemCode)
	if err != nil {
		return names, classify(err)
	}
	if !ok {
		return names, newError(KindRecordNotFound, "item %s is not in the catalog", req.ItemCode)
	}
	names.item = name

	if names.source, err = c.locationName(ctx, req.SourceLocation); err != nil {
		return names, classify(err)
	}
	if names.dest, err = c.locationName(ctx, req.DestLocation); err != nil {
		return names, classify(err)
	}
	return names, nil
}

// locationName falls back to the code for locations missing from the registry.
func (c *Coordinator) locationName(ctx context.Context, code string) (string, error) {
	name, ok, err := c.locations.LocationName(ctx, code)
	if err != nil {
		return "", err
	}
	if !ok || name == "" {
		return code, nil
	}
	return name, nil
}

func (c *Coordinator) finish(ctx context.Context, out Outcome) {
	attrs := []any{
		"item", out.Request.ItemCode,
		"from", out.Request.SourceLocation,
		"to", out.Request.DestLocation,
		"qty", out.Request.Quantity,
		"phase", out.Phase.String(),
		"reached", out.Reached.String(),
		"duration", out.Duration,
	}
	switch out.Phase {
	case PhaseConfirmed:
		c.log.Info("transfer confirmed", append(attrs, "transfer_id", out.Record.ID)...)
	case PhaseRejected:
		c.log.Info("transfer rejected", append(attrs, "kind", string(KindOf(out.Err)), "err", out.Err)...)
	default:
		c.log.Error("transfer aborted", append(attrs, "kind", string(KindOf(out.Err)), "err", out.Err)...)
	}

	for _, o := range c.observers {
		o.TransferFinished(ctx, out)
	}
}
