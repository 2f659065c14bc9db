package nodes

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strings"

	"github.com/weftlabs/weft/pkg/api"
)

// SendEmailHandler delivers mail over SMTP. Credential material (host,
// username, password) arrives already resolved in the node data; the engine
// never sees a credential store.
type SendEmailHandler struct {
	// SendFunc is swappable for tests; nil means smtp.SendMail.
	SendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func (h *SendEmailHandler) Type() api.NodeType { return api.NodeSendEmail }

func (h *SendEmailHandler) Required() []string { return []string{"host", "from", "to", "subject"} }

func (h *SendEmailHandler) Execute(ctx context.Context, req Request) (any, error) {
	host := stringField(req.Data, "host")
	port := intField(req.Data, "port", 587)
	from := stringField(req.Data, "from")
	subject := stringField(req.Data, "subject")
	body := stringField(req.Data, "text")

	to := recipients(req.Data["to"])
	if len(to) == 0 {
		return nil, fmt.Errorf("no recipients")
	}

	var auth smtp.Auth
	if user := stringField(req.Data, "username"); user != "" {
		auth = smtp.PlainAuth("", user, stringField(req.Data, "password"), host)
	}

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", from)
	fmt.Fprintf(&msg, "To: %s\r\n", strings.Join(to, ", "))
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n")
	msg.WriteString(body)

	send := h.SendFunc
	if send == nil {
		send = smtp.SendMail
	}

	addr := net.JoinHostPort(host, fmt.Sprintf("%d", port))

	// smtp.SendMail has no context plumbing; honor cancellation by checking
	// before the dial and accepting that an in-flight delivery finishes.
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	if err := send(addr, auth, from, to, []byte(msg.String())); err != nil {
		return nil, fmt.Errorf("smtp delivery: %w", err)
	}

	return map[string]any{
		"delivered": true,
		"to":        to,
		"subject":   subject,
	}, nil
}

func recipients(v any) []string {
	switch val := v.(type) {
	case string:
		var out []string
		for _, part := range strings.Split(val, ",") {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				out = append(out, trimmed)
			}
		}
		return out
	case []any:
		var out []string
		for _, item := range val {
			if s, ok := item.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	case []string:
		return val
	default:
		return nil
	}
}
