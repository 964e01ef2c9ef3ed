// Package notify sends stock alerts to the admin Telegram chat.
package notify

import (
	"context"
	"fmt"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/jwZhang-1102/goodsManagement/internal/domain/inventory"
)

// Sender is the part of *tgbotapi.BotAPI the notifier uses.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type stockLevel struct {
	rec      inventory.StockRecord
	itemName string
	locName  string
}

// LowStock alerts once when a location drops below its safety threshold
// after a transfer, and again only after it has recovered in between.
// TransferFinished never blocks; alerts are dropped when the queue is full.
type LowStock struct {
	api    Sender
	chatID int64
	log    *slog.Logger
	queue  chan stockLevel
	low    map[inventory.StockKey]bool // owned by Run
}

func NewLowStock(api Sender, chatID int64, log *slog.Logger, queueSize int) *LowStock {
	if queueSize <= 0 {
		queueSize = 64
	}
	return &LowStock{
		api:    api,
		chatID: chatID,
		log:    log,
		queue:  make(chan stockLevel, queueSize),
		low:    make(map[inventory.StockKey]bool),
	}
}

func (n *LowStock) TransferFinished(_ context.Context, out inventory.Outcome) {
	if out.Phase != inventory.PhaseConfirmed || out.Record == nil {
		return
	}
	levels := []stockLevel{
		{rec: out.Source, itemName: out.Record.ItemName, locName: out.Record.SourceLocationName},
		{rec: out.Dest, itemName: out.Record.ItemName, locName: out.Record.DestLocationName},
	}
	for _, l := range levels {
		select {
		case n.queue <- l:
		default:
			n.log.Warn("low-stock queue full, alert dropped", "item", l.rec.ItemCode, "location", l.rec.LocationCode)
		}
	}
}

// Run delivers alerts until ctx is done.
func (n *LowStock) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case l := <-n.queue:
			n.handle(l)
		}
	}
}

func (n *LowStock) handle(l stockLevel) {
	key := l.rec.Key()
	below := l.rec.BelowThreshold()
	wasLow := n.low[key]
	if !below {
		delete(n.low, key)
		return
	}
	n.low[key] = true
	if wasLow {
		return
	}
	if _, err := n.api.Send(tgbotapi.NewMessage(n.chatID, formatAlert(l))); err != nil {
		n.log.Error("low-stock alert send failed", "item", l.rec.ItemCode, "location", l.rec.LocationCode, "err", err)
	}
}

func formatAlert(l stockLevel) string {
	item := l.itemName
	if item == "" {
		item = l.rec.ItemCode
	}
	loc := l.locName
	if loc == "" {
		loc = l.rec.LocationCode
	}
	return fmt.Sprintf("⚠️ Low stock:\n• %s (%s) at %s: %d left, safety level %d",
		item, l.rec.ItemCode, loc, l.rec.Quantity, l.rec.SafetyThreshold)
}
