package kafka

import (
	"context"
	"errors"
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/require"
)

func TestPublishSendsKeyedMessageWithSortedHeaders(t *testing.T) {
	mock := mocks.NewSyncProducer(t, nil)
	mock.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		if msg.Topic != "escrow.events.v1" {
			return errors.New("unexpected topic " + msg.Topic)
		}
		key, _ := msg.Key.Encode()
		if string(key) != "BK-1" {
			return errors.New("unexpected key")
		}
		if len(msg.Headers) != 2 || string(msg.Headers[0].Key) != "content-type" || string(msg.Headers[1].Key) != "source" {
			return errors.New("headers not sorted")
		}
		return nil
	})
	p := NewProducerFrom(mock)
	defer p.Close()

	err := p.Publish(context.Background(), "escrow.events.v1", "BK-1", []byte(`{}`), map[string]string{
		"source":       "shortlet",
		"content-type": "application/cloudevents+json",
	})
	require.NoError(t, err)
}

func TestPublishSurfacesBrokerError(t *testing.T) {
	mock := mocks.NewSyncProducer(t, nil)
	mock.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)
	p := NewProducerFrom(mock)
	defer p.Close()

	err := p.Publish(context.Background(), "t", "k", nil, nil)
	require.ErrorIs(t, err, sarama.ErrOutOfBrokers)
}

func TestPublishHonoursCancelledContext(t *testing.T) {
	mock := mocks.NewSyncProducer(t, nil)
	p := NewProducerFrom(mock)
	defer p.Close()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.ErrorIs(t, p.Publish(ctx, "t", "k", nil, nil), context.Canceled)
}

func TestNewProducerRequiresBrokers(t *testing.T) {
	_, err := NewProducer(nil, "shortlet")
	require.ErrorIs(t, err, ErrNoBrokers)
}
