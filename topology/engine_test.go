package topology

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kinesis-scaling-utils/streamcontrol/streamcontroltest"
)

func TestEngineRebalanceExecutesSplitsAgainstFakeClient(t *testing.T) {
	fake := streamcontroltest.NewFakeClient("orders")
	engine := NewEngine(fake, "orders")

	open, err := fake.OpenShardSet()
	require.NoError(t, err)

	result, err := engine.Rebalance(context.Background(), open, 4)
	require.NoError(t, err)
	assert.Equal(t, OutcomeOk, result.Outcome)

	final, err := fake.OpenShardSet()
	require.NoError(t, err)
	assert.Equal(t, 4, final.Len())
}

func TestEngineRebalanceNoActionWhenAlreadyConverged(t *testing.T) {
	fake := streamcontroltest.NewFakeClient("orders")
	engine := NewEngine(fake, "orders")

	open, err := fake.OpenShardSet()
	require.NoError(t, err)

	result, err := engine.Rebalance(context.Background(), open, 1)
	require.NoError(t, err)
	assert.Equal(t, OutcomeNoActionRequired, result.Outcome)
	assert.Empty(t, fake.Mutations)
}

func TestEngineRebalanceScaleDownMergesToSingleShard(t *testing.T) {
	fake := streamcontroltest.NewFakeClient("orders")
	engine := NewEngine(fake, "orders")

	open, err := fake.OpenShardSet()
	require.NoError(t, err)
	_, err = engine.Rebalance(context.Background(), open, 4)
	require.NoError(t, err)

	midway, err := fake.OpenShardSet()
	require.NoError(t, err)

	result, err := engine.Rebalance(context.Background(), midway, 1)
	require.NoError(t, err)
	assert.Equal(t, OutcomeOk, result.Outcome)

	final, err := fake.OpenShardSet()
	require.NoError(t, err)
	assert.Equal(t, 1, final.Len())
}
