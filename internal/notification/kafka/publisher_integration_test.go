//go:build integration

package kafka_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"github.com/twmb/franz-go/pkg/kgo"

	"scholarops/internal/notification"
	"scholarops/internal/notification/kafka"
	"scholarops/pkg/testutil/containers"
)

type PublisherSuite struct {
	suite.Suite
	redpanda *containers.RedpandaContainer
}

func TestPublisherSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PublisherSuite))
}

func (s *PublisherSuite) SetupSuite() {
	s.redpanda = containers.GetManager().GetRedpanda(s.T())
}

func (s *PublisherSuite) TestNotifyDeliversKeyedRecord() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	topic := "notifications-" + uuid.NewString()

	p, err := kafka.New(kafka.Config{Brokers: []string{s.redpanda.Broker}, Topic: topic, ClientID: "scholarops-test"})
	s.Require().NoError(err)
	s.Require().NoError(p.EnsureTopic(ctx, 1, 1))
	s.Require().NoError(p.EnsureTopic(ctx, 1, 1), "existing topic is not an error")

	appID := uuid.NewString()
	p.Notify(ctx, notification.Event{
		Type:          notification.TypeInterviewScheduled,
		ApplicationID: appID,
		SlotID:        uuid.NewString(),
		OccurredAt:    time.Now().UTC(),
	})
	s.Require().NoError(p.Close(ctx))

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(s.redpanda.Broker),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	s.Require().NoError(err)
	defer consumer.Close()

	fetches := consumer.PollFetches(ctx)
	s.Require().Empty(fetches.Errors())
	records := fetches.Records()
	s.Require().Len(records, 1)

	record := records[0]
	s.Equal(appID, string(record.Key))
	s.Require().Len(record.Headers, 1)
	s.Equal("interview.scheduled", string(record.Headers[0].Value))

	var event notification.Event
	s.Require().NoError(json.Unmarshal(record.Value, &event))
	s.Equal(notification.TypeInterviewScheduled, event.Type)
	s.Equal(appID, event.ApplicationID)
}
