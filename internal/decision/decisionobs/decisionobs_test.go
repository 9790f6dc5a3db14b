package decisionobs

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nado-trading-bot/internal/types"
)

type stubEngine struct {
	res   types.DecisionResult
	err   error
	batch types.Batch
	calls int
}

func (s *stubEngine) Evaluate(_ context.Context, pc types.PairContext) (types.DecisionResult, error) {
	s.calls++
	if s.err != nil {
		return types.DecisionResult{}, s.err
	}
	r := s.res
	r.Pair = pc.Pair
	return r, nil
}

func (s *stubEngine) EvaluateAll(_ context.Context, _ []types.PairContext) types.Batch {
	s.calls++
	return s.batch
}

func TestWrapPassesThroughResults(t *testing.T) {
	inner := &stubEngine{res: types.DecisionResult{Side: types.SideLong, Reason: types.ReasonAccepted, Certainty: 100}}
	eng := Wrap(inner)

	res, err := eng.Evaluate(context.Background(), types.PairContext{Pair: "SOL_USDC"})
	require.NoError(t, err)
	assert.Equal(t, "SOL_USDC", res.Pair)
	assert.Equal(t, types.SideLong, res.Side)
	assert.Equal(t, 1, inner.calls)
}

func TestWrapPassesThroughErrors(t *testing.T) {
	inner := &stubEngine{err: types.ErrMissingIndicatorData}
	_, err := Wrap(inner).Evaluate(context.Background(), types.PairContext{Pair: "SOL_USDC"})
	assert.True(t, errors.Is(err, types.ErrMissingIndicatorData))
}

func TestWrapEvaluateAll(t *testing.T) {
	want := types.Batch{
		Results:  []types.DecisionResult{{Pair: "A", Side: types.SideNone}, {Pair: "C", Side: types.SideShort, Certainty: 80}},
		Failures: []types.PairFailure{{Pair: "B", Index: 1, Err: types.ErrDegenerateInput}},
	}
	inner := &stubEngine{batch: want}

	got := Wrap(inner).EvaluateAll(context.Background(), make([]types.PairContext, 3))
	assert.Equal(t, want, got)
	assert.Len(t, got.Actionable(), 1)
}
