package trace

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisabledTracingIsNoop(t *testing.T) {
	require.NoError(t, InitWithConfig(Config{Enabled: false}))
	assert.False(t, Enabled())

	ctx, span := StartSpan(context.Background(), "engine.Process")
	defer span.End()
	assert.False(t, span.SpanContext().IsValid())

	_, _, ok := GetTraceFields(ctx)
	assert.False(t, ok)
	assert.NoError(t, Shutdown(context.Background()))
}

func TestSpansShareTraceAndAreExported(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, InitWithConfig(Config{Enabled: true, Output: &buf}))
	t.Cleanup(func() { _ = InitWithConfig(Config{}) })

	ctx, parent := StartSpan(context.Background(), "engine.Process")
	traceID, spanID, ok := GetTraceFields(ctx)
	require.True(t, ok)

	child, span := StartSpan(ctx, "venue.PlaceOrder")
	childTrace, childSpan, ok := GetTraceFields(child)
	require.True(t, ok)
	assert.Equal(t, traceID, childTrace)
	assert.NotEqual(t, spanID, childSpan)

	span.End()
	parent.End()
	require.NoError(t, Shutdown(context.Background()))

	out := buf.String()
	assert.Contains(t, out, `"engine.Process"`)
	assert.Contains(t, out, `"venue.PlaceOrder"`)
	assert.Contains(t, out, "sentiment-trader")
}
