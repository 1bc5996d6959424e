package metrics

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric/noop"
)

func TestFilterAttributesDropsUnknownKeys(t *testing.T) {
	attrs := FilterAttributes(
		attribute.String("channel", "sms"),
		attribute.String("phone", "919301680755"),
		attribute.String("delivered", "true"),
	)

	require.Len(t, attrs, 2)
	assert.Equal(t, attribute.Key("channel"), attrs[0].Key)
	assert.Equal(t, attribute.Key("delivered"), attrs[1].Key)
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	m.RecordOrderConfirmed(context.Background(), "cod")
	m.RecordPaymentVerification(context.Background(), true)
	m.RecordNotification(context.Background(), "chat", false)
}

func TestNewBuildsInstruments(t *testing.T) {
	m, err := New(Config{ServiceName: "orderflow-test"}, noop.NewMeterProvider())
	require.NoError(t, err)
	require.NotNil(t, m)

	m.RecordOrderConfirmed(context.Background(), "prepaid")
	m.RecordNotification(context.Background(), "sms", true)
}
