package service

import (
	"context"
	"fmt"
	"html"
	"strings"

	"medrent-backend/internal/domain"
	"medrent-backend/internal/logger"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// mailSender is the part of the SendGrid client the email service needs.
type mailSender interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)
}

type emailService struct {
	client    mailSender
	fromEmail string
	fromName  string
}

func NewEmailService(apiKey, fromEmail, fromName string) EmailService {
	return newEmailService(sendgrid.NewSendClient(apiKey), fromEmail, fromName)
}

func newEmailService(client mailSender, fromEmail, fromName string) *emailService {
	return &emailService{
		client:    client,
		fromEmail: fromEmail,
		fromName:  fromName,
	}
}

func (s *emailService) send(ctx context.Context, to, toName, subject, plainText string) error {
	from := mail.NewEmail(s.fromName, s.fromEmail)
	recipient := mail.NewEmail(toName, to)
	htmlContent := "<p>" + strings.ReplaceAll(html.EscapeString(plainText), "\n", "<br>") + "</p>"
	message := mail.NewSingleEmail(from, subject, recipient, plainText, htmlContent)

	logger.ExternalServiceCall("sendgrid", "send", "to", to, "subject", subject)
	response, err := s.client.SendWithContext(ctx, message)
	if err == nil && response.StatusCode >= 400 {
		err = fmt.Errorf("sendgrid error: status %d, body: %s", response.StatusCode, response.Body)
	}
	logger.ExternalServiceResult("sendgrid", "send", err)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

func (s *emailService) SendNewOrderNotification(ctx context.Context, ownerEmail, ownerName, requesterName string, order *domain.Order) error {
	subject := fmt.Sprintf("New rental request from %s", requesterName)

	var b strings.Builder
	fmt.Fprintf(&b, "Hello %s,\n\n%s has requested to rent:\n", ownerName, requesterName)
	for _, item := range order.Items {
		fmt.Fprintf(&b, "- %s x%d for %d days: %s MAD\n", item.EquipmentName, item.Quantity, item.RentalDays, item.LineTotal.StringFixed(2))
	}
	fmt.Fprintf(&b, "\nTotal: %s MAD (deposit %s MAD)\nPayment: %s\n", order.TotalAmount.StringFixed(2), order.DepositAmount.StringFixed(2), order.PaymentMethod)
	b.WriteString("\nPlease approve or reject the request from your dashboard.\n\nBest regards,\nThe MedRent Team")

	return s.send(ctx, ownerEmail, ownerName, subject, b.String())
}

func (s *emailService) SendOrderStatusNotification(ctx context.Context, requesterEmail, requesterName string, order *domain.Order) error {
	subject := fmt.Sprintf("Your rental request was %s", order.Status)
	body := fmt.Sprintf("Hello %s,\n\nYour rental request %s for %s MAD has been %s.\n\nBest regards,\nThe MedRent Team",
		requesterName, order.ID, order.TotalAmount.StringFixed(2), order.Status)
	return s.send(ctx, requesterEmail, requesterName, subject, body)
}

func (s *emailService) SendPendingOrdersReminder(ctx context.Context, ownerEmail, ownerName string, orders []domain.Order) error {
	subject := fmt.Sprintf("%d rental request(s) awaiting your decision", len(orders))

	var b strings.Builder
	fmt.Fprintf(&b, "Hello %s,\n\nThe following requests are still pending:\n", ownerName)
	for _, o := range orders {
		fmt.Fprintf(&b, "- %s from %s %s, %s MAD, since %s\n", o.ID, o.PersonalInfo.FirstName, o.PersonalInfo.LastName, o.TotalAmount.StringFixed(2), o.CreatedAt.Format("2006-01-02"))
	}
	b.WriteString("\nBest regards,\nThe MedRent Team")

	return s.send(ctx, ownerEmail, ownerName, subject, b.String())
}

// logEmailService stands in when no SendGrid key is configured.
type logEmailService struct{}

func NewLogEmailService() EmailService {
	return logEmailService{}
}

func (logEmailService) SendNewOrderNotification(ctx context.Context, ownerEmail, ownerName, requesterName string, order *domain.Order) error {
	logger.InfoContext(ctx, "Email disabled: new order notification", "to", ownerEmail, "order_id", order.ID)
	return nil
}

func (logEmailService) SendOrderStatusNotification(ctx context.Context, requesterEmail, requesterName string, order *domain.Order) error {
	logger.InfoContext(ctx, "Email disabled: status notification", "to", requesterEmail, "order_id", order.ID, "status", order.Status)
	return nil
}

func (logEmailService) SendPendingOrdersReminder(ctx context.Context, ownerEmail, ownerName string, orders []domain.Order) error {
	logger.InfoContext(ctx, "Email disabled: pending reminder", "to", ownerEmail, "count", len(orders))
	return nil
}
