package handler

import (
	"ai-build-shop/internal/dto"
	"bytes"
	"html/template"

	"github.com/labstack/echo/v4"
)

type returnPage struct {
	Title     string
	Message   string
	SessionID string
	Order     *dto.OrderResponse
	Poll      bool
}

var returnPageTmpl = template.Must(template.New("return").Parse(`<!DOCTYPE html>
<html>
<head>
	<meta charset="utf-8">
	<title>{{.Title}}</title>
	<style>
		body {
			font-family: Arial, sans-serif;
			text-align: center;
			margin-top: 80px;
		}
		.status {
			font-size: 24px;
			font-weight: bold;
		}
	</style>
</head>
<body>
	<h2>{{.Title}}</h2>
	<p id="message">{{.Message}}</p>
	{{with .Order}}
	<p>Order #{{.ID}}: {{.ItemName}}</p>
	<p>EUR {{.AmountEur}}</p>
	<p>Status: <span class="status" id="status">{{.Status}}</span></p>
	{{end}}
	<p><a href="/">Back to the shop</a></p>
	{{if .Poll}}
	<script>
		const sessionId = {{.SessionID}};
		const statusEl = document.getElementById("status");
		const messageEl = document.getElementById("message");
		const settled = ["PAID", "CANCELED", "FAILED"];
		let attempts = 0;

		const timer = setInterval(async function () {
			attempts++;
			if (attempts > 40) {
				clearInterval(timer);
				messageEl.textContent = "Still waiting for confirmation. Check your orders page later.";
				return;
			}
			try {
				const res = await fetch("/api/payments/session-status?session_id=" + encodeURIComponent(sessionId), { credentials: "same-origin" });
				if (!res.ok) {
					return;
				}
				const body = await res.json();
				if (statusEl) {
					statusEl.textContent = body.order.status;
				}
				if (settled.includes(body.order.status)) {
					clearInterval(timer);
					messageEl.textContent = body.order.status === "PAID"
						? "Payment confirmed. We will assemble and configure your system shortly."
						: "The payment did not complete. No charge was made.";
				}
			} catch (e) {
				// retry on the next tick
			}
		}, 3000);
	</script>
	{{end}}
</body>
</html>
`))

func renderReturnPage(c echo.Context, code int, page *returnPage) error {
	var buf bytes.Buffer
	if err := returnPageTmpl.Execute(&buf, page); err != nil {
		return err
	}
	return c.HTMLBlob(code, buf.Bytes())
}
