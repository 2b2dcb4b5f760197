// internal/pkg/email/types.go
package email

import (
	"time"
)

// EmailType represents the type of email being sent
type EmailType string

const (
	EmailTypeOrderPlaced   EmailType = "order_placed"
	EmailTypeOrderPaid     EmailType = "order_paid"
	EmailTypeBookingPlaced EmailType = "booking_placed"
	EmailTypeBookingPaid   EmailType = "booking_paid"
)

// Email represents an email message
type Email struct {
	To          []string               `json:"to"`
	Subject     string                 `json:"subject"`
	HTMLContent string                 `json:"html_content"`
	Type        EmailType              `json:"type"`
	Data        map[string]interface{} `json:"data,omitempty"`
}

// EmailTemplateData contains common data for all email templates
type EmailTemplateData struct {
	SiteName      string
	SiteURL       string
	CustomerName  string
	CustomerEmail string
	Year          int
}

// LineItem is one row of an order summary
type LineItem struct {
	Name      string
	SKU       string
	Quantity  int
	UnitPrice string
	Total     string
}

// OrderEmailData feeds the order templates
type OrderEmailData struct {
	EmailTemplateData
	OrderNumber string
	OrderDate   string
	Status      string
	Items       []LineItem
	Subtotal    string
	Tax         string
	Shipping    string
	Total       string
	Currency    string
	ShipTo      string
	OrderURL    string
}

// BookingEmailData feeds the booking templates
type BookingEmailData struct {
	EmailTemplateData
	Reference     string
	PropertyTitle string
	Location      string
	CheckIn       string
	CheckOut      string
	Nights        int
	Guests        int
	Total         string
	Currency      string
	Status        string
	BookingURL    string
}

// GetBaseTemplateData returns common template data
func GetBaseTemplateData(siteName, siteURL, customerName, customerEmail string) EmailTemplateData {
	return EmailTemplateData{
		SiteName:      siteName,
		SiteURL:       siteURL,
		CustomerName:  customerName,
		CustomerEmail: customerEmail,
		Year:          time.Now().Year(),
	}
}
