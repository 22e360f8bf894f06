//go:build integration

package integration_test

import (
	"context"
	"io"
	"log/slog"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/couchcryptid/storm-ensemble-da/internal/ensemble"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"
)

const kafkaImage = "confluentinc/confluent-local:7.5.0"

// startKafka runs a single-node broker and returns its bootstrap address.
func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()
	container, err := tckafka.Run(ctx, kafkaImage, tckafka.WithClusterID("ensemble-da-test"))
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err, "kafka brokers")
	require.NotEmpty(t, brokers)
	return brokers[0]
}

// createTopic creates a single-partition topic through the cluster controller.
func createTopic(t *testing.T, broker, topic string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err, "dial broker")
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err, "find controller")

	ctrl, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err, "dial controller")
	defer ctrl.Close()

	require.NoError(t, ctrl.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}), "create topic %s", topic)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var (
	fixtureTime0 = time.Date(2015, time.June, 1, 12, 0, 0, 0, time.UTC)
	fixtureTime1 = time.Date(2015, time.June, 1, 15, 0, 0, 0, time.UTC)
)

// fixtureState is a 2 var x 2 time x 1 location x 4 member ensemble at KLGB.
// Member m of temp at the second time is 24+2m, so the prior mean there is
// 29 with variance 20/3.
func fixtureState(t *testing.T) *ensemble.State {
	t.Helper()
	dims := []ensemble.Dimension{
		{Name: "var", Labels: []ensemble.Label{"temp", "dewp"}},
		{Name: "time", Labels: []ensemble.Label{fixtureTime0, fixtureTime1}},
		{Name: "location", Labels: []ensemble.Label{"KLGB"}},
		{Name: "mem", Labels: []ensemble.Label{1, 2, 3, 4}},
	}
	values := []float64{
		20, 21, 22, 23,
		26, 28, 30, 32,
		10, 10, 10, 10,
		11, 12, 13, 14,
	}
	state, err := ensemble.NewState(values, []int{2, 2, 1, 4}, dims)
	require.NoError(t, err)
	return state
}
