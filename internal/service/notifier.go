package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"medrent-backend/internal/domain"
	"medrent-backend/internal/logger"
	"medrent-backend/internal/repository"
)

// NotifyTimeout bounds the side effects of a single order change.
const NotifyTimeout = 30 * time.Second

type orderNotifier struct {
	userRepo  repository.UserRepository
	emailSvc  EmailService
	pushSvc   PushService
	publisher EventPublisher
	timeout   time.Duration
	wg        sync.WaitGroup
}

func NewOrderNotifier(userRepo repository.UserRepository, emailSvc EmailService, pushSvc PushService, publisher EventPublisher) OrderNotifier {
	return &orderNotifier{
		userRepo:  userRepo,
		emailSvc:  emailSvc,
		pushSvc:   pushSvc,
		publisher: publisher,
		timeout:   NotifyTimeout,
	}
}

// OrderCreated tells the owner about a new request. Errors are logged only:
// the order is already committed.
func (n *orderNotifier) OrderCreated(ctx context.Context, order *domain.Order) {
	n.dispatch(ctx, func(ctx context.Context) { n.orderCreated(ctx, order) })
}

// OrderStatusChanged tells the requester about the owner's decision.
func (n *orderNotifier) OrderStatusChanged(ctx context.Context, order *domain.Order) {
	n.dispatch(ctx, func(ctx context.Context) { n.orderStatusChanged(ctx, order) })
}

func (n *orderNotifier) Wait() {
	n.wg.Wait()
}

// dispatch runs fn in the background. The context keeps the request values
// but not its cancellation, so a client hanging up does not drop the event.
func (n *orderNotifier) dispatch(ctx context.Context, fn func(ctx context.Context)) {
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), n.timeout)
		defer cancel()
		fn(ctx)
	}()
}

func (n *orderNotifier) orderCreated(ctx context.Context, order *domain.Order) {
	n.publish(ctx, domain.NewOrderEvent(domain.OrderEventCreated, order))

	owner, err := n.userRepo.GetByID(ctx, order.OwnerID)
	if err != nil {
		logger.WarnContext(ctx, "Owner lookup failed, skipping notification", "order_id", order.ID, "owner_id", order.OwnerID, "error", err)
		return
	}
	requesterName := fmt.Sprintf("%s %s", order.PersonalInfo.FirstName, order.PersonalInfo.LastName)

	if err := n.emailSvc.SendNewOrderNotification(ctx, owner.Email, owner.Name, requesterName, order); err != nil {
		logger.WarnContext(ctx, "Failed to email owner", "order_id", order.ID, "error", err)
	}
	if owner.PushToken != "" {
		body := fmt.Sprintf("%s requested %d item(s) for %s MAD", requesterName, len(order.Items), order.TotalAmount.StringFixed(2))
		if err := n.pushSvc.Send(ctx, owner.PushToken, "New rental request", body, pushData(order)); err != nil {
			logger.WarnContext(ctx, "Failed to push to owner", "order_id", order.ID, "error", err)
		}
	}
}

func (n *orderNotifier) orderStatusChanged(ctx context.Context, order *domain.Order) {
	n.publish(ctx, domain.NewOrderEvent(domain.OrderEventStatusChanged, order))

	requester, err := n.userRepo.GetByID(ctx, order.RequesterID)
	if err != nil {
		logger.WarnContext(ctx, "Requester lookup failed, skipping notification", "order_id", order.ID, "requester_id", order.RequesterID, "error", err)
		return
	}

	if err := n.emailSvc.SendOrderStatusNotification(ctx, requester.Email, requester.Name, order); err != nil {
		logger.WarnContext(ctx, "Failed to email requester", "order_id", order.ID, "error", err)
	}
	if requester.PushToken != "" {
		body := fmt.Sprintf("Your rental request was %s", order.Status)
		if err := n.pushSvc.Send(ctx, requester.PushToken, "Rental request update", body, pushData(order)); err != nil {
			logger.WarnContext(ctx, "Failed to push to requester", "order_id", order.ID, "error", err)
		}
	}
}

func (n *orderNotifier) publish(ctx context.Context, event domain.OrderEvent) {
	if err := n.publisher.Publish(ctx, event); err != nil {
		logger.WarnContext(ctx, "Failed to publish order event", "event", event.Type, "order_id", event.OrderID, "error", err)
	}
}

func pushData(order *domain.Order) map[string]string {
	return map[string]string{
		"type":     "RENTAL_ORDER",
		"order_id": order.ID,
		"status":   string(order.Status),
	}
}
