// internal/pkg/pdf/service.go
package pdf

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"github.com/SebastiaanKlippert/go-wkhtmltopdf"
	"github.com/shopspring/decimal"
	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/domain/order"
)

// Service handles PDF generation
type Service struct {
	company CompanyInfo
	now     func() time.Time
}

// NewService creates a new PDF service
func NewService(cfg *config.Config) *Service {
	return &Service{
		company: CompanyInfo{
			Name:    cfg.Invoice.CompanyName,
			Address: cfg.Invoice.CompanyAddress,
			Phone:   cfg.Invoice.CompanyPhone,
			Email:   cfg.Invoice.CompanyEmail,
			Website: cfg.App.PublicBaseURL,
		},
		now: time.Now,
	}
}

// InvoiceData represents the data passed to the invoice template
type InvoiceData struct {
	InvoiceNumber string
	InvoiceDate   string
	OrderDate     string
	Order         *order.Order
	Company       CompanyInfo
	Lines         []InvoiceLine
	Subtotal      string
	Tax           string
	Shipping      string
	Total         string
}

// InvoiceLine is a formatted order line
type InvoiceLine struct {
	Name      string
	SKU       string
	Quantity  int
	UnitPrice string
	Total     string
}

// CompanyInfo represents company information
type CompanyInfo struct {
	Name    string
	Address string
	Phone   string
	Email   string
	Website string
}

// GenerateInvoice generates a PDF invoice for an order
func (s *Service) GenerateInvoice(o *order.Order) (*bytes.Buffer, error) {
	htmlContent, err := s.generateHTML(s.invoiceData(o))
	if err != nil {
		return nil, fmt.Errorf("failed to generate HTML: %w", err)
	}

	pdfg, err := wkhtmltopdf.NewPDFGenerator()
	if err != nil {
		return nil, fmt.Errorf("failed to create PDF generator: %w", err)
	}

	pdfg.Dpi.Set(300)
	pdfg.Orientation.Set(wkhtmltopdf.OrientationPortrait)
	pdfg.Grayscale.Set(false)

	page := wkhtmltopdf.NewPageReader(bytes.NewReader([]byte(htmlContent)))
	page.FooterRight.Set("[page]")
	page.FooterFontSize.Set(9)
	page.Zoom.Set(0.95)

	pdfg.AddPage(page)

	if err := pdfg.Create(); err != nil {
		return nil, fmt.Errorf("failed to create PDF: %w", err)
	}

	return bytes.NewBuffer(pdfg.Bytes()), nil
}

func (s *Service) invoiceData(o *order.Order) InvoiceData {
	lines := make([]InvoiceLine, 0, len(o.Items))
	for _, item := range o.Items {
		lines = append(lines, InvoiceLine{
			Name:      item.Name,
			SKU:       item.SKU,
			Quantity:  item.Quantity,
			UnitPrice: money(item.UnitPrice),
			Total:     money(item.LineTotal),
		})
	}

	return InvoiceData{
		InvoiceNumber: "INV-" + o.OrderNumber,
		InvoiceDate:   s.now().Format("January 2, 2006"),
		OrderDate:     o.CreatedAt.Format("January 2, 2006"),
		Order:         o,
		Company:       s.company,
		Lines:         lines,
		Subtotal:      money(o.Subtotal),
		Tax:           money(o.Tax),
		Shipping:      money(o.Shipping),
		Total:         money(o.Total),
	}
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

var invoiceTmpl = template.Must(template.New("invoice").Parse(invoiceTemplate))

// generateHTML generates HTML content from template
func (s *Service) generateHTML(data InvoiceData) (string, error) {
	var buf bytes.Buffer
	if err := invoiceTmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}
	return buf.String(), nil
}

const invoiceTemplate = `
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Invoice {{.InvoiceNumber}}</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 0; padding: 20px; color: #333; }
        .header { display: flex; justify-content: space-between; margin-bottom: 30px; border-bottom: 2px solid #eee; padding-bottom: 20px; }
        .company-info { flex: 1; }
        .invoice-info { text-align: right; flex: 1; }
        .invoice-title { font-size: 28px; font-weight: bold; color: #2563eb; margin-bottom: 10px; }
        .addresses { display: flex; justify-content: space-between; margin-bottom: 30px; }
        .address { flex: 1; }
        .items-table { width: 100%; border-collapse: collapse; margin-bottom: 30px; }
        .items-table th { background-color: #f8f9fa; padding: 12px; text-align: left; border-bottom: 2px solid #dee2e6; }
        .items-table td { padding: 12px; border-bottom: 1px solid #dee2e6; }
        .qty-col, .price-col, .total-col { text-align: right; }
        .totals { width: 300px; margin-left: auto; }
        .totals td { padding: 8px; }
        .totals .amount { text-align: right; }
        .grand-total { font-weight: bold; font-size: 18px; border-top: 2px solid #333; }
        .status-badge { padding: 4px 8px; border-radius: 4px; font-size: 12px; text-transform: uppercase; }
        .status-paid { background-color: #d1fae5; color: #065f46; }
        .status-pending { background-color: #fef3c7; color: #92400e; }
        .footer { margin-top: 40px; text-align: center; font-size: 12px; color: #666; }
    </style>
</head>
<body>
    <div class="header">
        <div class="company-info">
            <h1>{{.Company.Name}}</h1>
            {{if .Company.Address}}<p>{{.Company.Address}}</p>{{end}}
            {{if .Company.Phone}}<p>Phone: {{.Company.Phone}}</p>{{end}}
            {{if .Company.Email}}<p>Email: {{.Company.Email}}</p>{{end}}
            {{if .Company.Website}}<p>{{.Company.Website}}</p>{{end}}
        </div>
        <div class="invoice-info">
            <div class="invoice-title">INVOICE</div>
            <p><strong>Invoice #:</strong> {{.InvoiceNumber}}</p>
            <p><strong>Invoice Date:</strong> {{.InvoiceDate}}</p>
            <p><strong>Order #:</strong> {{.Order.OrderNumber}}</p>
            <p><strong>Order Date:</strong> {{.OrderDate}}</p>
            <p>
                <span class="status-badge {{if eq .Order.PaymentStatus "paid"}}status-paid{{else}}status-pending{{end}}">{{.Order.PaymentStatus}}</span>
            </p>
        </div>
    </div>

    <div class="addresses">
        <div class="address">
            <h3>Bill To:</h3>
            {{with .Order.BillingAddress}}
            <p><strong>{{.FirstName}} {{.LastName}}</strong></p>
            <p>{{.AddressLine1}}</p>
            {{if .AddressLine2}}<p>{{.AddressLine2}}</p>{{end}}
            <p>{{.City}}{{if .State}}, {{.State}}{{end}} {{.PostalCode}}</p>
            <p>{{.Country}}</p>
            {{if .Phone}}<p>Phone: {{.Phone}}</p>{{end}}
            {{end}}
            <p>Email: {{.Order.Email}}</p>
        </div>
        <div class="address">
            <h3>Ship To:</h3>
            {{with .Order.ShippingAddress}}
            <p><strong>{{.FirstName}} {{.LastName}}</strong></p>
            <p>{{.AddressLine1}}</p>
            {{if .AddressLine2}}<p>{{.AddressLine2}}</p>{{end}}
            <p>{{.City}}{{if .State}}, {{.State}}{{end}} {{.PostalCode}}</p>
            <p>{{.Country}}</p>
            {{if .Phone}}<p>Phone: {{.Phone}}</p>{{end}}
            {{end}}
        </div>
    </div>

    <table class="items-table">
        <thead>
            <tr>
                <th>Item</th>
                <th>SKU</th>
                <th class="qty-col">Qty</th>
                <th class="price-col">Unit Price</th>
                <th class="total-col">Total</th>
            </tr>
        </thead>
        <tbody>
            {{range .Lines}}
            <tr>
                <td><strong>{{.Name}}</strong></td>
                <td>{{.SKU}}</td>
                <td class="qty-col">{{.Quantity}}</td>
                <td class="price-col">{{.UnitPrice}}</td>
                <td class="total-col">{{.Total}}</td>
            </tr>
            {{end}}
        </tbody>
    </table>

    <table class="totals">
        <tr><td>Subtotal:</td><td class="amount">{{.Subtotal}}</td></tr>
        <tr><td>Shipping:</td><td class="amount">{{.Shipping}}</td></tr>
        <tr><td>Tax:</td><td class="amount">{{.Tax}}</td></tr>
        <tr class="grand-total"><td>Total ({{.Order.Currency}}):</td><td class="amount">{{.Total}}</td></tr>
    </table>

    <div class="footer">
        <p>Thank you for your business!</p>
        {{if .Company.Email}}<p>If you have any questions about this invoice, please contact us at {{.Company.Email}}</p>{{end}}
    </div>
</body>
</html>
`
