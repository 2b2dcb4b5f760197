// internal/pkg/email/service.go
package email

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/domain/booking"
	"github.com/your-org/storefront-backend/internal/domain/order"
)

const (
	resendEndpoint   = "https://api.resend.com/emails"
	sendgridEndpoint = "https://api.sendgrid.com/v3/mail/send"
)

// EmailService handles all email operations. It satisfies the order and
// booking notifier interfaces.
type EmailService struct {
	config    config.EmailConfig
	siteName  string
	siteURL   string
	templates map[string]*template.Template
	client    *http.Client
	log       logrus.FieldLogger

	resendURL   string
	sendgridURL string
}

// NewEmailService creates a new email service
func NewEmailService(cfg *config.Config, log logrus.FieldLogger) *EmailService {
	service := &EmailService{
		config:    cfg.External.Email,
		siteName:  cfg.App.Name,
		siteURL:   cfg.App.PublicBaseURL,
		templates: make(map[string]*template.Template),
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		log:         log,
		resendURL:   resendEndpoint,
		sendgridURL: sendgridEndpoint,
	}

	if service.config.FromName != "" {
		service.siteName = service.config.FromName
	}

	if err := service.loadTemplates(); err != nil {
		log.WithField("error", err.Error()).Warn("Failed to load email templates")
	}

	return service
}

// SendEmail sends an email using the configured provider
func (s *EmailService) SendEmail(ctx context.Context, email *Email) error {
	switch s.config.Provider {
	case "smtp":
		return s.sendSMTPEmail(email)
	case "resend":
		return s.sendResendEmail(ctx, email)
	case "sendgrid":
		return s.sendSendGridEmail(ctx, email)
	case "log", "":
		s.log.WithFields(logrus.Fields{
			"to":      email.To,
			"subject": email.Subject,
			"type":    email.Type,
		}).Info("Email not sent, log provider configured")
		return nil
	default:
		return fmt.Errorf("unsupported email provider: %s", s.config.Provider)
	}
}

// OrderPlaced sends the order confirmation
func (s *EmailService) OrderPlaced(ctx context.Context, o *order.Order) error {
	data := s.orderData(o)

	htmlContent, err := s.renderTemplate("order_placed", data)
	if err != nil {
		return fmt.Errorf("failed to render order confirmation template: %w", err)
	}

	return s.SendEmail(ctx, &Email{
		To:          []string{o.Email},
		Subject:     fmt.Sprintf("Order Confirmation - %s", o.OrderNumber),
		HTMLContent: htmlContent,
		Type:        EmailTypeOrderPlaced,
		Data:        map[string]interface{}{"order_number": o.OrderNumber, "total": data.Total},
	})
}

// OrderPaid sends the payment receipt for an order
func (s *EmailService) OrderPaid(ctx context.Context, o *order.Order) error {
	data := s.orderData(o)

	htmlContent, err := s.renderTemplate("order_paid", data)
	if err != nil {
		return fmt.Errorf("failed to render payment received template: %w", err)
	}

	return s.SendEmail(ctx, &Email{
		To:          []string{o.Email},
		Subject:     fmt.Sprintf("Payment Received - %s", o.OrderNumber),
		HTMLContent: htmlContent,
		Type:        EmailTypeOrderPaid,
		Data:        map[string]interface{}{"order_number": o.OrderNumber, "reference": o.PaymentReference},
	})
}

// BookingPlaced sends the booking hold notice
func (s *EmailService) BookingPlaced(ctx context.Context, b *booking.RealEstateBooking) error {
	data := s.bookingData(b)

	htmlContent, err := s.renderTemplate("booking_placed", data)
	if err != nil {
		return fmt.Errorf("failed to render booking template: %w", err)
	}

	return s.SendEmail(ctx, &Email{
		To:          []string{b.GuestEmail},
		Subject:     fmt.Sprintf("Booking Received - %s", b.Reference),
		HTMLContent: htmlContent,
		Type:        EmailTypeBookingPlaced,
		Data:        map[string]interface{}{"reference": b.Reference},
	})
}

// BookingPaid sends the booking confirmation after payment
func (s *EmailService) BookingPaid(ctx context.Context, b *booking.RealEstateBooking) error {
	data := s.bookingData(b)

	htmlContent, err := s.renderTemplate("booking_paid", data)
	if err != nil {
		return fmt.Errorf("failed to render booking confirmation template: %w", err)
	}

	return s.SendEmail(ctx, &Email{
		To:          []string{b.GuestEmail},
		Subject:     fmt.Sprintf("Booking Confirmed - %s", b.Reference),
		HTMLContent: htmlContent,
		Type:        EmailTypeBookingPaid,
		Data:        map[string]interface{}{"reference": b.Reference, "payment_reference": b.PaymentReference},
	})
}

func (s *EmailService) orderData(o *order.Order) OrderEmailData {
	items := make([]LineItem, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, LineItem{
			Name:      item.Name,
			SKU:       item.SKU,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice.StringFixed(2),
			Total:     item.LineTotal.StringFixed(2),
		})
	}

	ship := o.ShippingAddress
	return OrderEmailData{
		EmailTemplateData: GetBaseTemplateData(s.siteName, s.siteURL, ship.FullName(), o.Email),
		OrderNumber:       o.OrderNumber,
		OrderDate:         o.CreatedAt.Format("January 2, 2006"),
		Status:            string(o.Status),
		Items:             items,
		Subtotal:          o.Subtotal.StringFixed(2),
		Tax:               o.Tax.StringFixed(2),
		Shipping:          o.Shipping.StringFixed(2),
		Total:             o.Total.StringFixed(2),
		Currency:          o.Currency,
		ShipTo:            fmt.Sprintf("%s, %s, %s", ship.AddressLine1, ship.City, ship.Country),
		OrderURL:          fmt.Sprintf("%s/orders/%s", s.siteURL, o.OrderNumber),
	}
}

func (s *EmailService) bookingData(b *booking.RealEstateBooking) BookingEmailData {
	data := BookingEmailData{
		EmailTemplateData: GetBaseTemplateData(s.siteName, s.siteURL, b.GuestName, b.GuestEmail),
		Reference:         b.Reference,
		CheckIn:           b.CheckIn.Format(booking.DateLayout),
		CheckOut:          b.CheckOut.Format(booking.DateLayout),
		Nights:            b.Nights,
		Guests:            b.Guests,
		Total:             b.Total.StringFixed(2),
		Currency:          b.Currency,
		Status:            string(b.Status),
		BookingURL:        fmt.Sprintf("%s/bookings/%s", s.siteURL, b.Reference),
	}
	if b.Property != nil {
		data.PropertyTitle = b.Property.Title
		data.Location = b.Property.Location
	}
	return data
}

// loadTemplates parses the built-in templates, preferring files in TemplateDir
func (s *EmailService) loadTemplates() error {
	var firstErr error
	for name, body := range defaultTemplates {
		if s.config.TemplateDir != "" {
			path := filepath.Join(s.config.TemplateDir, name+".html")
			if content, err := os.ReadFile(path); err == nil {
				body = string(content)
			}
		}

		tmpl, err := template.New(name).Parse(partials)
		if err == nil {
			tmpl, err = tmpl.Parse(body)
		}
		if err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("template %s: %w", name, err)
			}
			// Fall back to the built-in version
			tmpl = template.Must(template.Must(template.New(name).Parse(partials)).Parse(defaultTemplates[name]))
		}
		s.templates[name] = tmpl
	}
	return firstErr
}

// renderTemplate renders an email template with data
func (s *EmailService) renderTemplate(templateName string, data interface{}) (string, error) {
	tmpl, exists := s.templates[templateName]
	if !exists {
		return "", fmt.Errorf("template %s not found", templateName)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template %s: %w", templateName, err)
	}

	return buf.String(), nil
}
