package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/iotdataplane"

	"parking_allocator/internal/domain"
)

type IoTDataAPI interface {
	Publish(ctx context.Context, params *iotdataplane.PublishInput, optFns ...func(*iotdataplane.Options)) (*iotdataplane.PublishOutput, error)
}

// availabilityPayload is what lot display boards subscribe to.
type availabilityPayload struct {
	LotID     int                     `json:"lot_id"`
	Event     domain.ParkingEventType `json:"event"`
	Occupied  int                     `json:"occupied"`
	Available int                     `json:"available"`
	Timestamp string                  `json:"timestamp"`
}

// IoTPublisher pushes lot availability to MQTT topic <prefix>/<lot id>/availability.
type IoTPublisher struct {
	client      IoTDataAPI
	topicPrefix string
}

func NewIoTPublisher(client IoTDataAPI, topicPrefix string) *IoTPublisher {
	return &IoTPublisher{client: client, topicPrefix: strings.TrimSuffix(topicPrefix, "/")}
}

// NewIoTDataClient builds an iotdataplane client against the account's data
// endpoint, adding the https scheme when the endpoint lacks one.
func NewIoTDataClient(cfg aws.Config, endpoint string) *iotdataplane.Client {
	return iotdataplane.NewFromConfig(cfg, func(o *iotdataplane.Options) {
		if endpoint == "" {
			return
		}
		if !strings.HasPrefix(endpoint, "https://") && !strings.HasPrefix(endpoint, "http://") {
			endpoint = "https://" + endpoint
		}
		o.BaseEndpoint = aws.String(endpoint)
	})
}

func (p *IoTPublisher) Name() string { return "iot" }

func (p *IoTPublisher) Topic(lotID int) string {
	return fmt.Sprintf("%s/%d/availability", p.topicPrefix, lotID)
}

func (p *IoTPublisher) Publish(ctx context.Context, event domain.ParkingEvent) error {
	payloadBytes, err := json.Marshal(availabilityPayload{
		LotID:     event.LotID,
		Event:     event.Type,
		Occupied:  event.Occupied,
		Available: event.Available,
		Timestamp: event.Timestamp.Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("IoTPublisher.Publish (marshal): %w", err)
	}

	_, err = p.client.Publish(ctx, &iotdataplane.PublishInput{
		Topic:   aws.String(p.Topic(event.LotID)),
		Qos:     1,
		Payload: payloadBytes,
	})
	if err != nil {
		return fmt.Errorf("IoTPublisher.Publish: %w", err)
	}
	return nil
}
