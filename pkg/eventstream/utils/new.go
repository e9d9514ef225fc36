package eventstreamutils

import (
	"fmt"
	"log/slog"

	"github.com/papercomputeco/verity/pkg/eventstream"
	"github.com/papercomputeco/verity/pkg/eventstream/kafka"
	"github.com/papercomputeco/verity/pkg/eventstream/nop"
	"github.com/papercomputeco/verity/pkg/logger"
)

type NewPublisherOpts struct {
	// ProviderType is one of "none" or "kafka".
	ProviderType string
	Brokers      []string
	Topic        string
	Logger       *slog.Logger
}

func NewPublisher(o *NewPublisherOpts) (eventstream.Publisher, error) {
	log := logger.Component(o.Logger, "eventstream")

	switch o.ProviderType {
	case "none", "":
		return nop.NewPublisher(), nil
	case "kafka":
		p, err := kafka.NewPublisher(kafka.Config{
			Brokers: o.Brokers,
			Topic:   o.Topic,
		}, o.Logger)
		if err != nil {
			return nil, err
		}
		log.Info("publishing resolution events to kafka", "brokers", o.Brokers, "topic", o.Topic)
		return p, nil
	default:
		return nil, fmt.Errorf("unsupported event stream provider: %s", o.ProviderType)
	}
}
