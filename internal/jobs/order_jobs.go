package jobs

import (
	"context"
	"time"

	"medrent-backend/internal/domain"
	"medrent-backend/internal/logger"
)

// SendPendingReminders emails each owner the orders still waiting on them
func (jr *JobRunner) SendPendingReminders() {
	jr.runWithRecovery("SendPendingReminders", func() {
		sent, err := jr.sendPendingReminders(context.Background())
		if err != nil {
			logger.Error("Failed to send pending reminders", "error", err)
			return
		}
		logger.Info("Sent pending order reminders", "owners", sent)
	})
}

func (jr *JobRunner) sendPendingReminders(ctx context.Context) (int, error) {
	before := jr.now().Add(-time.Duration(jr.config.Orders.PendingReminderAfterHours) * time.Hour)
	orders, err := jr.repos.Orders.ListPendingCreatedBefore(ctx, before)
	if err != nil {
		return 0, err
	}

	byOwner := make(map[int32][]domain.Order)
	var owners []int32
	for _, o := range orders {
		if _, ok := byOwner[o.OwnerID]; !ok {
			owners = append(owners, o.OwnerID)
		}
		byOwner[o.OwnerID] = append(byOwner[o.OwnerID], o)
	}

	sent := 0
	for _, ownerID := range owners {
		owner, err := jr.repos.Users.GetByID(ctx, ownerID)
		if err != nil {
			logger.Error("Failed to load owner for reminder", "owner_id", ownerID, "error", err)
			continue
		}
		if err := jr.services.Email.SendPendingOrdersReminder(ctx, owner.Email, owner.Name, byOwner[ownerID]); err != nil {
			logger.Error("Failed to send pending reminder", "owner_id", ownerID, "error", err)
			continue
		}
		sent++
	}
	return sent, nil
}
