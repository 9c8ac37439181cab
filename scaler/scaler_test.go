package scaler

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kinesis-scaling-utils/streamcontrol"
	"kinesis-scaling-utils/streamcontrol/streamcontroltest"
)

func intPtr(v int) *int { return &v }

func TestResizeFallsBackToRebalanceWhenUpdateShardCountUnsupported(t *testing.T) {
	fake := streamcontroltest.NewFakeClient("orders")
	s := New(fake, "orders", nil, nil)

	report, err := s.Resize(context.Background(), 4)
	require.NoError(t, err)
	assert.Equal(t, EndStatusOk, report.EndStatus)
	assert.Equal(t, DirectionUp, report.Direction)
	assert.Equal(t, 1, report.FromCount)
	assert.Equal(t, 4, report.ToCount)
	assert.NotEmpty(t, report.Operations)
}

func TestResizeUsesUpdateShardCountWhenSupported(t *testing.T) {
	fake := streamcontroltest.NewFakeClient("orders")
	s := New(&supportingClient{FakeClient: fake}, "orders", nil, nil)

	report, err := s.Resize(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, EndStatusOk, report.EndStatus)
	assert.Equal(t, []string{"updateShardCount(2)"}, report.Operations, "direct UpdateShardCount path counts as exactly one operation")
}

func TestResizeNoActionWhenAlreadyAtTarget(t *testing.T) {
	fake := streamcontroltest.NewFakeClient("orders")
	s := New(fake, "orders", nil, nil)

	report, err := s.Resize(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, EndStatusNoActionRequired, report.EndStatus)
}

func TestResizeHonorsMaxShardsCap(t *testing.T) {
	fake := streamcontroltest.NewFakeClient("orders")
	s := New(fake, "orders", nil, intPtr(2))

	report, err := s.Resize(context.Background(), 8)
	require.NoError(t, err)
	assert.Equal(t, 2, report.ToCount)
}

func TestResizeReportsAlreadyAtMaximum(t *testing.T) {
	fake := streamcontroltest.NewFakeClient("orders")
	s := New(fake, "orders", nil, intPtr(1))

	report, err := s.Resize(context.Background(), 4)
	require.NoError(t, err)
	assert.Equal(t, EndStatusAlreadyAtMaximum, report.EndStatus)
}

func TestPreviewIssuesNoMutations(t *testing.T) {
	fake := streamcontroltest.NewFakeClient("orders")
	s := New(fake, "orders", nil, nil)

	report, err := s.Preview(context.Background(), 4)
	require.NoError(t, err)
	assert.Equal(t, EndStatusReportOnly, report.EndStatus)
	assert.Empty(t, fake.Mutations)
	assert.NotEmpty(t, report.Operations)
}

func TestScaleByPercentDeltaFormRoundsUp(t *testing.T) {
	fake := streamcontroltest.NewFakeClient("orders")
	s := New(fake, "orders", nil, nil)
	_, err := s.Resize(context.Background(), 4)
	require.NoError(t, err)

	report, err := s.ScaleByPercent(context.Background(), decimal.RequireFromString("0.1"), true, true)
	require.NoError(t, err)
	assert.Equal(t, 5, report.ToCount) // 4 * 1.1 = 4.4, rounded up to 5
}

func TestScaleByPercentFactorFormShrinksOnScaleDown(t *testing.T) {
	fake := streamcontroltest.NewFakeClient("orders")
	s := New(fake, "orders", nil, nil)
	_, err := s.Resize(context.Background(), 8)
	require.NoError(t, err)

	report, err := s.ScaleByPercent(context.Background(), decimal.RequireFromString("0.75"), false, false)
	require.NoError(t, err)
	assert.Equal(t, DirectionDown, report.Direction)
	assert.Equal(t, 6, report.ToCount) // 8 * 0.75 = 6, not 8 / 0.75
}

// supportingClient wraps FakeClient and makes UpdateShardCount succeed,
// exercising the Scaler's direct-API-first path.
type supportingClient struct {
	*streamcontroltest.FakeClient
}

func (c *supportingClient) UpdateShardCount(ctx context.Context, streamName string, targetCount int32) error {
	return nil
}

var _ streamcontrol.Client = (*supportingClient)(nil)
