package alerts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// SlackNotifier sends alerts to a Slack webhook.
type SlackNotifier struct {
	webhookURL string
	channel    string
	client     *http.Client
}

// NewSlackNotifier creates a Slack webhook notifier.
func NewSlackNotifier(webhookURL, channel string) *SlackNotifier {
	return &SlackNotifier{
		webhookURL: webhookURL,
		channel:    channel,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (s *SlackNotifier) Name() string { return "slack" }

func (s *SlackNotifier) Send(ctx context.Context, alert Alert) error {
	savings := alert.BelowTarget()

	fields := []slackField{
		{Title: "Product", Value: alert.ProductName, Short: true},
		{Title: "Price", Value: "$" + alert.Price.StringFixed(2), Short: true},
		{Title: "Target", Value: "$" + alert.TargetPrice.StringFixed(2), Short: true},
		{Title: "Below Target", Value: "$" + savings.StringFixed(2), Short: true},
	}
	if alert.URL != "" {
		fields = append(fields, slackField{Title: "Link", Value: alert.URL})
	}

	payload := slackPayload{
		Channel: s.channel,
		Text:    alert.Message,
		Attachments: []slackAttachment{
			{
				Color:  "#36a64f",
				Title:  fmt.Sprintf("Price Tracker: %s hit its target", alert.ProductName),
				Fields: fields,
				Footer: "Price Tracker",
				Ts:     alert.ObservedAt.Unix(),
			},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal slack payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create slack request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send slack alert: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("slack returned status %d", resp.StatusCode)
	}
	return nil
}

type slackPayload struct {
	Channel     string            `json:"channel,omitempty"`
	Text        string            `json:"text,omitempty"`
	Attachments []slackAttachment `json:"attachments"`
}

type slackAttachment struct {
	Color  string       `json:"color"`
	Title  string       `json:"title"`
	Fields []slackField `json:"fields"`
	Footer string       `json:"footer"`
	Ts     int64        `json:"ts"`
}

type slackField struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}
