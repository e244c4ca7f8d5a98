package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azservicebus"

	"github.com/fslarfn/toto-backend-sub000/config"
	"github.com/fslarfn/toto-backend-sub000/internal/events"
)

// ServiceBusClient is an interface for Azure Service Bus operations
type ServiceBusClient interface {
	SendMessage(ctx context.Context, body interface{}, props map[string]interface{}) error
	Close() error
}

// serviceBusClient implements the ServiceBusClient interface
type serviceBusClient struct {
	client    *azservicebus.Client
	sender    *azservicebus.Sender
	queueName string
}

// NewServiceBusClient creates a new Azure Service Bus client
func NewServiceBusClient(cfg config.AzureConfig) (ServiceBusClient, error) {
	if cfg.QueueConnStr == "" {
		return nil, fmt.Errorf("azure service bus connection string is empty")
	}

	client, err := azservicebus.NewClientFromConnectionString(cfg.QueueConnStr, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Service Bus client: %w", err)
	}

	sender, err := client.NewSender(cfg.QueueName, nil)
	if err != nil {
		_ = client.Close(context.Background())
		return nil, fmt.Errorf("failed to create Service Bus sender: %w", err)
	}

	return &serviceBusClient{
		client:    client,
		sender:    sender,
		queueName: cfg.QueueName,
	}, nil
}

// SendMessage sends body as JSON with the given application properties
func (s *serviceBusClient) SendMessage(ctx context.Context, body interface{}, props map[string]interface{}) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal message body: %w", err)
	}

	contentType := "application/json"
	msg := &azservicebus.Message{
		Body:                  data,
		ContentType:           &contentType,
		ApplicationProperties: props,
	}

	return s.sender.SendMessage(ctx, msg, nil)
}

// Close closes the sender and the client
func (s *serviceBusClient) Close() error {
	if s.sender != nil {
		if err := s.sender.Close(context.Background()); err != nil {
			return err
		}
	}
	if s.client != nil {
		return s.client.Close(context.Background())
	}
	return nil
}

// ChangeFeed publishes every work order change to a Service Bus queue for
// downstream consumers such as invoicing and reporting.
type ChangeFeed struct {
	client ServiceBusClient
	source string
}

// FeedMessage is the body of one change feed message
type FeedMessage struct {
	Event       string      `json:"event"`
	WorkOrderID uint        `json:"work_order_id"`
	Data        interface{} `json:"data"`
	OccurredAt  time.Time   `json:"occurred_at"`
}

// NewChangeFeed wraps client; source tags each message with the sending instance
func NewChangeFeed(client ServiceBusClient, source string) *ChangeFeed {
	return &ChangeFeed{client: client, source: source}
}

// Name implements events.Sink
func (f *ChangeFeed) Name() string { return "servicebus" }

// Deliver implements events.Sink
func (f *ChangeFeed) Deliver(ctx context.Context, change events.Change) error {
	at := change.At
	if at.IsZero() {
		at = time.Now().UTC()
	}
	body := FeedMessage{
		Event:       string(change.Kind),
		WorkOrderID: change.ID,
		Data:        change.Payload(),
		OccurredAt:  at,
	}
	props := map[string]interface{}{
		"event":  string(change.Kind),
		"source": f.source,
		"time":   at.UTC().Format(time.RFC3339),
	}
	if err := f.client.SendMessage(ctx, body, props); err != nil {
		return fmt.Errorf("failed to send change to Service Bus: %w", err)
	}
	return nil
}

// Close releases the underlying client
func (f *ChangeFeed) Close() error {
	return f.client.Close()
}
