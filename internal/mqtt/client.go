// Package mqtt connects the skill to the assistant message bus: it
// consumes parsed intent messages and publishes spoken answers.
package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"spotiskill/internal/core"
	"spotiskill/pkg/entity"
)

const (
	connectRetryInterval = 5 * time.Second
	keepAlive            = 60 * time.Second
	pingTimeout          = 10 * time.Second
	disconnectQuiesceMs  = 250
	qosAtLeastOnce       = 1
)

// Handler processes one parsed command.
type Handler func(ctx context.Context, cmd *core.Command)

// intentPayload is the wire format of one intent message as published
// by the assistant's intent engine.
type intentPayload struct {
	ID      string `json:"id"`
	Numbers []struct {
		NumberToken   int    `json:"number_token"`
		PreviousToken string `json:"previous_token"`
	} `json:"numbers"`
	Nouns         []string `json:"nouns"`
	ClientRequest struct {
		Text        string `json:"text"`
		Room        string `json:"room"`
		Device      string `json:"device,omitempty"`
		OutputTopic string `json:"output_topic"`
	} `json:"client_request"`
}

// Client is the paho-backed bus connection. It implements
// core.Responder for the answer side.
type Client struct {
	config *core.MQTTConfig
	logger *zap.Logger
	client mqtt.Client
}

func NewClient(config *core.MQTTConfig, logger *zap.Logger) *Client {
	return &Client{
		config: config,
		logger: logger,
	}
}

// Start connects to the broker, subscribes to the intent topic and
// dispatches each message to the handler in its own goroutine. It
// blocks until the context is cancelled, then disconnects cleanly.
func (c *Client) Start(ctx context.Context, handler Handler) error {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(c.config.Broker)
	opts.SetClientID(c.config.ClientID)
	if c.config.Username != "" {
		opts.SetUsername(c.config.Username)
		opts.SetPassword(c.config.Password)
	}
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(connectRetryInterval)
	opts.SetKeepAlive(keepAlive)
	opts.SetPingTimeout(pingTimeout)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		c.logger.Warn("Lost connection to broker", zap.Error(err))
	})
	// Subscribing from OnConnect restores the subscription after every
	// reconnect, not just the first connect.
	opts.SetOnConnectHandler(func(client mqtt.Client) {
		c.logger.Info("Connected to broker",
			zap.String("broker", c.config.Broker))

		token := client.Subscribe(c.config.IntentTopic, qosAtLeastOnce,
			func(_ mqtt.Client, msg mqtt.Message) {
				cmd, err := ParseCommand(msg.Payload())
				if err != nil {
					c.logger.Error("Failed to parse intent message",
						zap.String("topic", msg.Topic()),
						zap.Error(err))
					return
				}
				go handler(ctx, cmd)
			})
		if token.Wait() && token.Error() != nil {
			c.logger.Error("Failed to subscribe to intent topic",
				zap.String("topic", c.config.IntentTopic),
				zap.Error(token.Error()))
		}
	})

	c.client = mqtt.NewClient(opts)

	if err := waitConnect(ctx, c.client.Connect()); err != nil {
		c.client.Disconnect(disconnectQuiesceMs)
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("failed to connect to broker: %w", err)
	}

	<-ctx.Done()

	c.client.Disconnect(disconnectQuiesceMs)
	c.logger.Info("Disconnected from broker")
	return nil
}

// connectToken is the subset of mqtt.Token the connect wait needs.
type connectToken interface {
	Done() <-chan struct{}
	Error() error
}

// waitConnect blocks until the connect attempt settles or the context
// is cancelled. With connect retries enabled the token only settles on
// success, so the context is what keeps shutdown responsive while the
// broker is unreachable.
func waitConnect(ctx context.Context, token connectToken) error {
	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Respond publishes the answer text to the given topic, falling back to
// the configured response topic when the command carried none.
func (c *Client) Respond(ctx context.Context, topic, text string) error {
	if c.client == nil {
		return fmt.Errorf("client not connected")
	}

	if topic == "" {
		topic = c.config.ResponseTopic
	}

	token := c.client.Publish(topic, qosAtLeastOnce, false, text)
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to publish answer to %q: %w", topic, token.Error())
	}

	c.logger.Debug("Published answer", zap.String("topic", topic))
	return nil
}

// ParseCommand decodes one intent message. When the intent engine
// supplied no tagged numbers the command text is scanned directly.
func ParseCommand(payload []byte) (*core.Command, error) {
	var intent intentPayload
	if err := json.Unmarshal(payload, &intent); err != nil {
		return nil, fmt.Errorf("invalid intent payload: %w", err)
	}

	if intent.ClientRequest.Text == "" {
		return nil, fmt.Errorf("intent payload has no command text")
	}

	cmd := &core.Command{
		ID:          intent.ID,
		Text:        intent.ClientRequest.Text,
		Room:        intent.ClientRequest.Room,
		OutputTopic: intent.ClientRequest.OutputTopic,
		DeviceName:  intent.ClientRequest.Device,
		Nouns:       intent.Nouns,
	}

	for _, num := range intent.Numbers {
		cmd.Numbers = append(cmd.Numbers, core.NumberEntity{
			Value:    num.NumberToken,
			Previous: num.PreviousToken,
		})
	}

	if len(cmd.Numbers) == 0 {
		for _, num := range entity.Numbers(cmd.Text) {
			cmd.Numbers = append(cmd.Numbers, core.NumberEntity{
				Value:    num.Value,
				Previous: num.Previous,
			})
		}
	}

	return cmd, nil
}
