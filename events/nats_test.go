package events_test

import (
	"context"
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	tcNats "github.com/testcontainers/testcontainers-go/modules/nats"
	"github.com/testcontainers/testcontainers-go/wait"
	"gocloud.dev/pubsub"

	"github.com/pitabwire/l10n/events"
)

const (
	natsImage   = "nats:latest"
	natsSubject = "l10n_support"
)

func TestDriverSchemes(t *testing.T) {
	testCases := []struct {
		name   string
		scheme string
	}{
		{name: "in-memory", scheme: "mem"},
		{name: "nats", scheme: "nats"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			mux := pubsub.DefaultURLMux()
			require.True(t, mux.ValidTopicScheme(tc.scheme), "no topic driver for %q", tc.scheme)
			require.True(t, mux.ValidSubscriptionScheme(tc.scheme), "no subscription driver for %q", tc.scheme)
		})
	}
}

// NatsSuite sends support events through a NATS JetStream server.
type NatsSuite struct {
	suite.Suite
	container *tcNats.NATSContainer
	url       string
}

func TestNatsSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container tests in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	suite.Run(t, new(NatsSuite))
}

func (s *NatsSuite) SetupSuite() {
	ctx := s.T().Context()

	container, err := tcNats.Run(ctx, natsImage,
		testcontainers.WithCmdArgs("--js"),
		testcontainers.WithWaitStrategy(wait.ForLog("Server is ready")))
	s.Require().NoError(err)
	s.container = container

	conn, err := container.ConnectionString(ctx)
	s.Require().NoError(err)

	u, err := url.Parse(conn)
	s.Require().NoError(err)

	q := u.Query()
	q.Set("jetstream", "true")
	q.Set("subject", natsSubject)
	q.Set("stream_name", natsSubject)
	q.Set("stream_subjects", natsSubject)
	q.Set("consumer_durable_name", "Durable_"+natsSubject)
	q.Set("consumer_filter_subject", natsSubject)
	q.Set("consumer_ack_policy", "explicit")
	q.Set("consumer_deliver_policy", "all")
	q.Set("consumer_replay_policy", "instant")
	q.Set("stream_retention", "workqueue")
	q.Set("stream_storage", "file")
	u.RawQuery = q.Encode()
	s.url = u.String()
}

func (s *NatsSuite) TearDownSuite() {
	if s.container != nil {
		_ = testcontainers.TerminateContainer(s.container)
	}
}

func (s *NatsSuite) TestPublishAndReceive() {
	ctx, cancel := context.WithTimeout(s.T().Context(), 30*time.Second)
	defer cancel()

	publisher := events.NewPublisher(s.url)
	s.Require().NoError(publisher.Init(ctx))
	defer func() { s.Require().NoError(publisher.Stop(context.Background())) }()

	sub, err := events.NewSubscriber(ctx, s.url)
	s.Require().NoError(err)
	defer func() { _ = sub.Close(context.Background()) }()

	s.Require().NoError(publisher.Publish(ctx, events.EventSupportCompleted,
		events.SupportEvent{Language: "de", Status: "succeeded", Progress: 100}))

	stop := errors.New("received")
	var got events.SupportEvent
	err = sub.Receive(ctx, events.HandlerFunc(func(_ context.Context, evt events.SupportEvent) error {
		got = evt
		return stop
	}))
	s.Require().ErrorIs(err, stop)

	s.Equal(events.EventSupportCompleted, got.Name)
	s.Equal("de", got.Language)
	s.Equal(100, got.Progress)
	s.NotEmpty(got.ID)
}
