// Package transport delivers action events to an external home-automation
// system over an HTTP webhook, an MQTT bus, or both in parallel, and
// accepts command callbacks from either channel (spec.md §4.6). Bus mode
// is grounded on github.com/eclipse/paho.mqtt.golang; fan-out concurrency
// in Both mode is grounded on the teacher's concurrent stream-manager
// reconciliation pattern (internal/streams/manager.go), generalized from
// "reconcile N streams" to "send on N channels".
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// Command is the payload shape delivered by either channel's inbound
// callback, matching the webhook dispatcher's vocabulary (spec.md §4.7).
type Command struct {
	Command string                 `json:"command"`
	Params  map[string]interface{} `json:"params,omitempty"`
}

// CommandHandler processes an inbound command from either transport
// channel. Both channels share one handler per spec.md §4.6.
type CommandHandler func(Command)

// Transport is the outbound delivery abstraction the router holds.
type Transport interface {
	Send(ctx context.Context, event interface{})
	Close()
}

const webhookTimeout = 500 * time.Millisecond

// Webhook posts JSON events to a fixed URL, single attempt, no retry.
type Webhook struct {
	url    string
	client *http.Client
}

func NewWebhook(url string) *Webhook {
	return &Webhook{url: url, client: &http.Client{Timeout: webhookTimeout}}
}

func (w *Webhook) Send(ctx context.Context, event interface{}) {
	buf, err := json.Marshal(event)
	if err != nil {
		slog.Warn("transport: marshal event failed", "err", err)
		return
	}
	ctx, cancel := context.WithTimeout(ctx, webhookTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(buf))
	if err != nil {
		slog.Warn("transport: build webhook request failed", "err", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := w.client.Do(req)
	if err != nil {
		slog.Warn("transport: webhook delivery failed", "url", w.url, "err", err)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		slog.Warn("transport: webhook returned non-2xx", "url", w.url, "status", resp.StatusCode)
	}
}

func (w *Webhook) Close() {}

const (
	maxReconnectInterval = 30 * time.Second
)

// Bus delivers events over MQTT, publishing outbound events with QoS 0
// to a device-specific topic and subscribing QoS 1 to the inbound topic,
// with a retained last-will "offline" status and a retained "online"
// status on connect (spec.md §4.6).
type Bus struct {
	client      mqtt.Client
	outTopic    string
	inTopic     string
	statusTopic string
}

// NewBus connects to brokerURL and wires the device's three topics,
// derived from displayName via slugify, under topicPrefix.
func NewBus(brokerURL, topicPrefix, displayName string, handler CommandHandler) *Bus {
	slug := slugify(displayName)
	b := &Bus{
		outTopic:    fmt.Sprintf("%s/%s/out", topicPrefix, slug),
		inTopic:     fmt.Sprintf("%s/%s/in", topicPrefix, slug),
		statusTopic: fmt.Sprintf("%s/%s/status", topicPrefix, slug),
	}

	opts := mqtt.NewClientOptions().
		AddBroker(brokerURL).
		SetClientID("amplipi-router-" + slug).
		SetAutoReconnect(true).
		SetMaxReconnectInterval(maxReconnectInterval).
		SetConnectRetry(true).
		SetConnectRetryInterval(1 * time.Second).
		SetWill(b.statusTopic, `{"status":"offline"}`, 1, true).
		SetOnConnectHandler(func(c mqtt.Client) {
			slog.Info("transport: bus connected", "broker", brokerURL)
			token := c.Publish(b.statusTopic, 1, true, `{"status":"online"}`)
			token.Wait()
			if handler != nil {
				c.Subscribe(b.inTopic, 1, func(_ mqtt.Client, msg mqtt.Message) {
					var cmd Command
					if err := json.Unmarshal(msg.Payload(), &cmd); err != nil {
						slog.Warn("transport: bus inbound payload unparsable", "err", err)
						return
					}
					handler(cmd)
				})
			}
		}).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			slog.Warn("transport: bus connection lost", "err", err)
		})

	b.client = mqtt.NewClient(opts)
	if token := b.client.Connect(); token.Wait() && token.Error() != nil {
		slog.Error("transport: bus initial connect failed, will keep retrying", "err", token.Error())
	}
	return b
}

func (b *Bus) Send(ctx context.Context, event interface{}) {
	buf, err := json.Marshal(event)
	if err != nil {
		slog.Warn("transport: marshal event failed", "err", err)
		return
	}
	token := b.client.Publish(b.outTopic, 0, false, buf)
	if !token.WaitTimeout(webhookTimeout) {
		slog.Warn("transport: bus publish timed out", "topic", b.outTopic)
	}
}

func (b *Bus) Close() {
	if b.client == nil || !b.client.IsConnected() {
		return
	}
	token := b.client.Publish(b.statusTopic, 1, true, `{"status":"offline"}`)
	token.WaitTimeout(webhookTimeout)
	b.client.Disconnect(250)
}

// Both fans an event out to a webhook and a bus concurrently, awaiting
// both; a failure on either channel is logged but does not affect the
// other (spec.md §4.6).
type Both struct {
	webhook *Webhook
	bus     *Bus
}

func NewBoth(webhook *Webhook, bus *Bus) *Both {
	return &Both{webhook: webhook, bus: bus}
}

func (t *Both) Send(ctx context.Context, event interface{}) {
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		t.webhook.Send(ctx, event)
	}()
	go func() {
		defer wg.Done()
		t.bus.Send(ctx, event)
	}()
	wg.Wait()
}

func (t *Both) Close() {
	t.webhook.Close()
	t.bus.Close()
}

// New builds a Transport from a mode string and the relevant config,
// matching internal/model.TransportConfig's Mode field.
func New(mode, webhookURL, brokerURL, topicPrefix, displayName string, handler CommandHandler) (Transport, error) {
	switch mode {
	case "webhook":
		return NewWebhook(webhookURL), nil
	case "bus":
		return NewBus(brokerURL, topicPrefix, displayName, handler), nil
	case "both":
		return NewBoth(NewWebhook(webhookURL), NewBus(brokerURL, topicPrefix, displayName, handler)), nil
	default:
		return nil, fmt.Errorf("transport: unknown mode %q", mode)
	}
}
