package email

// Built-in templates, used when TemplateDir has no override
var defaultTemplates = map[string]string{
	"order_placed": `<!DOCTYPE html>
<html><head><meta charset="UTF-8"><title>{{.SiteName}}</title></head>
<body style="font-family: Arial, sans-serif; background-color: #f4f4f4; padding: 20px;">
<div style="max-width: 600px; margin: 0 auto; background-color: white; padding: 20px; border-radius: 8px;">
<h1 style="color: #333;">Thanks for your order</h1>
<p>Hello {{.CustomerName}},</p>
<p>We received order <strong>{{.OrderNumber}}</strong> on {{.OrderDate}}. It will ship once payment is confirmed.</p>
{{template "order_table" .}}
<p>Shipping to: {{.ShipTo}}</p>
<p><a href="{{.OrderURL}}">View your order</a></p>
<p style="font-size: 12px; color: #666;">&copy; {{.Year}} {{.SiteName}}</p>
</div></body></html>`,

	"order_paid": `<!DOCTYPE html>
<html><head><meta charset="UTF-8"><title>{{.SiteName}}</title></head>
<body style="font-family: Arial, sans-serif; background-color: #f4f4f4; padding: 20px;">
<div style="max-width: 600px; margin: 0 auto; background-color: white; padding: 20px; border-radius: 8px;">
<h1 style="color: #333;">Payment received</h1>
<p>Hello {{.CustomerName}},</p>
<p>We received {{.Currency}} {{.Total}} for order <strong>{{.OrderNumber}}</strong>. Your order is now {{.Status}}.</p>
{{template "order_table" .}}
<p><a href="{{.OrderURL}}">View your order</a></p>
<p style="font-size: 12px; color: #666;">&copy; {{.Year}} {{.SiteName}}</p>
</div></body></html>`,

	"booking_placed": `<!DOCTYPE html>
<html><head><meta charset="UTF-8"><title>{{.SiteName}}</title></head>
<body style="font-family: Arial, sans-serif; background-color: #f4f4f4; padding: 20px;">
<div style="max-width: 600px; margin: 0 auto; background-color: white; padding: 20px; border-radius: 8px;">
<h1 style="color: #333;">Booking received</h1>
<p>Hello {{.CustomerName}},</p>
<p>Your booking <strong>{{.Reference}}</strong> for {{.PropertyTitle}} ({{.Location}}) is held pending payment.</p>
{{template "booking_summary" .}}
<p><a href="{{.BookingURL}}">View your booking</a></p>
<p style="font-size: 12px; color: #666;">&copy; {{.Year}} {{.SiteName}}</p>
</div></body></html>`,

	"booking_paid": `<!DOCTYPE html>
<html><head><meta charset="UTF-8"><title>{{.SiteName}}</title></head>
<body style="font-family: Arial, sans-serif; background-color: #f4f4f4; padding: 20px;">
<div style="max-width: 600px; margin: 0 auto; background-color: white; padding: 20px; border-radius: 8px;">
<h1 style="color: #333;">Booking confirmed</h1>
<p>Hello {{.CustomerName}},</p>
<p>We received payment for booking <strong>{{.Reference}}</strong>. Your stay at {{.PropertyTitle}} is {{.Status}}.</p>
{{template "booking_summary" .}}
<p><a href="{{.BookingURL}}">View your booking</a></p>
<p style="font-size: 12px; color: #666;">&copy; {{.Year}} {{.SiteName}}</p>
</div></body></html>`,
}

const partials = `
{{define "order_table"}}
<table style="width: 100%; border-collapse: collapse;">
<tr><th align="left">Item</th><th>Qty</th><th align="right">Price</th><th align="right">Total</th></tr>
{{range .Items}}<tr><td>{{.Name}}</td><td align="center">{{.Quantity}}</td><td align="right">{{.UnitPrice}}</td><td align="right">{{.Total}}</td></tr>
{{end}}
<tr><td colspan="3" align="right">Subtotal</td><td align="right">{{.Subtotal}}</td></tr>
<tr><td colspan="3" align="right">Tax</td><td align="right">{{.Tax}}</td></tr>
<tr><td colspan="3" align="right">Shipping</td><td align="right">{{.Shipping}}</td></tr>
<tr><td colspan="3" align="right"><strong>Total</strong></td><td align="right"><strong>{{.Currency}} {{.Total}}</strong></td></tr>
</table>
{{end}}
{{define "booking_summary"}}
<p>Check-in: {{.CheckIn}}<br>Check-out: {{.CheckOut}}<br>Nights: {{.Nights}}<br>Guests: {{.Guests}}<br>Total: {{.Currency}} {{.Total}}</p>
{{end}}
`
