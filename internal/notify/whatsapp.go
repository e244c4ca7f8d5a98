package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/pkg/errors"

	"github.com/fslarfn/toto-backend-sub000/config"
)

const defaultAPIURL = "https://api.fonnte.com/send"

// Sender delivers a text message to a phone number
type Sender interface {
	Send(ctx context.Context, phone, message string) error
}

// WhatsAppClient sends messages through the fonnte.com gateway
type WhatsAppClient struct {
	apiURL string
	token  string
	http   *http.Client
}

// NewWhatsAppClient creates a fonnte client; the token is required
func NewWhatsAppClient(cfg config.WhatsAppConfig) (*WhatsAppClient, error) {
	if cfg.Token == "" {
		return nil, errors.New("whatsapp token is empty")
	}
	apiURL := cfg.APIURL
	if apiURL == "" {
		apiURL = defaultAPIURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WhatsAppClient{
		apiURL: apiURL,
		token:  cfg.Token,
		http:   &http.Client{Timeout: timeout},
	}, nil
}

// Send implements Sender
func (c *WhatsAppClient) Send(ctx context.Context, phone, message string) error {
	payload, err := json.Marshal(map[string]string{
		"target":  phone,
		"message": message,
	})
	if err != nil {
		return errors.Wrap(err, "failed to marshal whatsapp payload")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(payload))
	if err != nil {
		return errors.Wrap(err, "failed to build whatsapp request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrap(err, "failed to send whatsapp request")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("whatsapp gateway returned status %d", resp.StatusCode)
	}

	// fonnte answers 200 with {"status": false, "reason": ...} for rejected targets
	var body struct {
		Status *bool  `json:"status"`
		Reason string `json:"reason"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil && body.Status != nil && !*body.Status {
		return errors.Errorf("whatsapp gateway rejected message: %s", body.Reason)
	}
	return nil
}

// ReminderMessage formats the subscription expiry reminder
func ReminderMessage(name string, expiresAt time.Time) string {
	if name == "" {
		name = "Pelanggan"
	}
	msg := fmt.Sprintf("Halo %s,\n\n", name)
	msg += fmt.Sprintf("Langganan Anda akan berakhir pada *%s*.\n", expiresAt.Format("02/01/2006"))
	msg += "Silakan lakukan pembayaran agar akses tetap aktif.\n\n"
	msg += "_Pesan otomatis, mohon tidak membalas._"
	return msg
}
