package notifications

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/padswitch/internal/model"
)

const DefaultBaseURL = "https://ntfy.sh"

// Notifier posts to an ntfy topic when the auto-off timer trips.
type Notifier struct {
	client  *http.Client
	baseURL string
	topic   string
}

// New returns nil when topic is empty; a nil Notifier ignores every event.
func New(baseURL, topic string) *Notifier {
	if topic == "" {
		log.Warn().Msg("Ntfy topic not configured - notifications disabled")
		return nil
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	log.Info().
		Str("topic", topic).
		Msg("Ntfy notifications initialized")

	return &Notifier{
		client:  &http.Client{Timeout: 10 * time.Second},
		baseURL: baseURL,
		topic:   topic,
	}
}

func (n *Notifier) Name() string { return "ntfy" }

func (n *Notifier) Handle(ev model.Event) error {
	if n == nil || ev.Kind != model.EventAutoOff {
		return nil
	}
	return n.Send("Pad switch auto-off", autoOffMessage(ev))
}

func autoOffMessage(ev model.Event) string {
	if ev.Pin == model.NoPin {
		return "Auto-off timer expired; outputs switched off and gate disabled"
	}
	return fmt.Sprintf("Auto-off timer expired; gate disabled, output %d still selected", ev.Pin)
}

// Send posts a single notification to the configured topic.
func (n *Notifier) Send(title, message string) error {
	if n == nil {
		return fmt.Errorf("notifications not initialized")
	}

	url := fmt.Sprintf("%s/%s", n.baseURL, n.topic)

	payload := map[string]interface{}{
		"topic":   n.topic,
		"title":   title,
		"message": message,
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("ntfy returned non-success status: %d", resp.StatusCode)
	}

	log.Debug().
		Str("title", title).
		Int("status", resp.StatusCode).
		Msg("Notification sent successfully")
	return nil
}
