//go:build integration

package changefeed

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jeanchristophedibi/fanaf-back-next-sub000/internal/registration/models"
	"github.com/jeanchristophedibi/fanaf-back-next-sub000/pkg/testutil/containers"
)

func TestKafkaNotifierRoundTrip(t *testing.T) {
	rp := containers.NewRedpandaContainer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	cfg := KafkaConfig{Brokers: rp.Brokers, Topic: "registration-changes"}
	producer, err := NewKafkaNotifier(ctx, cfg, quietLogger())
	require.NoError(t, err)
	defer producer.Close()

	// A second instance sees the topic already provisioned.
	consumer, err := NewKafkaNotifier(ctx, cfg, quietLogger())
	require.NoError(t, err)
	defer consumer.Close()

	got := make(chan Signal, 16)
	listenCtx, stop := context.WithCancel(ctx)
	defer stop()
	go func() { _ = consumer.Listen(listenCtx, func(sig Signal) { got <- sig }) }()

	require.Eventually(t, func() bool {
		_ = producer.Notify(ctx, Signal{
			Origin:  "instance-a",
			Kind:    models.EventFinalized,
			IDs:     []models.RegistrationID{"A"},
			BatchID: "batch-1",
		})
		select {
		case sig := <-got:
			return sig.BatchID == "batch-1"
		case <-time.After(500 * time.Millisecond):
			return false
		}
	}, 30*time.Second, 100*time.Millisecond)
}
