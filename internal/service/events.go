package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"parking_allocator/internal/domain"
	"parking_allocator/internal/repository"
)

// EventNotifier receives parking events after their transaction has committed.
type EventNotifier interface {
	Notify(ctx context.Context, event domain.ParkingEvent)
}

type eventPublisher struct {
	store    repository.Store
	notifier EventNotifier
}

func (p eventPublisher) publish(ctx context.Context, event domain.ParkingEvent) {
	if p.notifier == nil {
		return
	}
	event.EventID = uuid.NewString()
	event.Timestamp = time.Now().UTC()
	counts, err := p.store.Spots().CountByLotID(ctx, event.LotID)
	if err != nil {
		zap.L().Warn("could not read lot occupancy for event",
			zap.String("event_type", string(event.Type)), zap.Int("lot_id", event.LotID), zap.Error(err))
	} else {
		event.Occupied = counts.Occupied
		event.Available = counts.Available()
	}
	p.notifier.Notify(ctx, event)
}
