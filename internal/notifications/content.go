package notifications

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/aurelhart/scoreline-backend/internal/orders"
)

var htmlTagRe = regexp.MustCompile(`<[^>]*>`)

func confirmationBody(order orders.OrderDTO, link string) (string, string) {
	name := order.CustomerName
	if name == "" {
		name = fallbackCustomerName
	}

	html := fmt.Sprintf(`<html><body>
<h1>Thank you for your purchase!</h1>
<p>Dear %s,</p>
<p>Thank you for purchasing <strong>%s</strong>.</p>
<ul>
<li><strong>Order ID:</strong> %s</li>
<li><strong>Amount:</strong> %s %s</li>
<li><strong>Date:</strong> %s</li>
</ul>
<p>Your files are attached to this email. You can also download them any time: <a href="%s">%s</a></p>
</body></html>`,
		name, order.Title, order.OrderID,
		order.Amount.StringFixed(2), order.Currency,
		order.CreatedAt.Format("January 2, 2006"),
		link, link)

	return html, htmlToText(html)
}

func failureBody(order orders.OrderDTO, reason, supportLink string) (string, string) {
	name := order.CustomerName
	if name == "" {
		name = fallbackCustomerName
	}

	html := fmt.Sprintf(`<html><body>
<h1>Payment unsuccessful</h1>
<p>Dear %s,</p>
<p>Unfortunately your payment for <strong>%s</strong> could not be completed.</p>
<p>Reason: %s</p>
<p>No charge was made. You can retry the purchase, or reach us via <a href="%s">support</a> if the problem persists.</p>
</body></html>`,
		name, order.Title, reason, supportLink)

	return html, htmlToText(html)
}

func operatorBody(order orders.OrderDTO, adminLink string) (string, string) {
	var b strings.Builder
	fmt.Fprintf(&b, `<html><body>
<h2>Order %s</h2>
<ul>
<li><strong>Customer:</strong> %s (%s)</li>
<li><strong>Item:</strong> %s</li>
<li><strong>Amount:</strong> %s %s</li>
<li><strong>Status:</strong> %s</li>
</ul>`,
		order.OrderID, order.CustomerName, order.CustomerEmail,
		order.Title, order.Amount.StringFixed(2), order.Currency,
		order.Status)

	if order.FailureReason != nil && *order.FailureReason != "" {
		fmt.Fprintf(&b, "<p>Failure reason: %s</p>", *order.FailureReason)
	}
	if adminLink != "" {
		fmt.Fprintf(&b, `<p><a href="%s">Open in admin</a></p>`, adminLink)
	}
	b.WriteString("</body></html>")

	html := b.String()
	return html, htmlToText(html)
}

func htmlToText(html string) string {
	text := htmlTagRe.ReplaceAllString(html, " ")
	text = strings.ReplaceAll(text, "&nbsp;", " ")
	text = strings.ReplaceAll(text, "&amp;", "&")
	text = strings.ReplaceAll(text, "&lt;", "<")
	text = strings.ReplaceAll(text, "&gt;", ">")
	return strings.Join(strings.Fields(text), " ")
}
