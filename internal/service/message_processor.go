package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go-errorhandler/internal/observability"
	"go-errorhandler/pkg/models"

	"github.com/sirupsen/logrus"
)

// MessageProcessor is the business step of the request route
type MessageProcessor struct {
	logger *logrus.Entry
	now    func() time.Time
}

func NewMessageProcessor() *MessageProcessor {
	return &MessageProcessor{
		logger: observability.WithComponent("processor"),
		now:    time.Now,
	}
}

// Process validates that the message body is a JSON object, empty or not,
// and stamps it as processed. It has the route.Processor signature.
func (p *MessageProcessor) Process(ctx context.Context, ex *models.Exchange) error {
	msg := ex.In
	p.logger.WithFields(logrus.Fields{
		"key":        msg.Key,
		"message_id": msg.ID,
	}).Info("Processing message")

	var data map[string]interface{}
	if err := json.Unmarshal(msg.Body, &data); err != nil {
		return fmt.Errorf("failed to parse message: %w", err)
	}
	// null decodes without error into a nil map
	if data == nil {
		return fmt.Errorf("message %q is not a JSON object", msg.Key)
	}

	msg.SetHeader(models.HeaderProcessedAt, p.now().UTC().Format(time.RFC3339))

	p.logger.WithFields(logrus.Fields{
		"key":    msg.Key,
		"fields": len(data),
	}).Debug("Message processed successfully")

	return nil
}
