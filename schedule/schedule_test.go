package schedule

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRankDeterministic(t *testing.T) {
	deps := [][]int{{1, 2, 2, 4}, {}, {1, 3}, {}, {1}}

	first, err := Rank(deps)
	require.NoError(t, err)
	second, err := Rank(deps)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	// Every rank 1..N assigned exactly once.
	seen := make(map[int]bool)
	for _, r := range first {
		assert.GreaterOrEqual(t, r, 1)
		assert.LessOrEqual(t, r, len(deps))
		assert.False(t, seen[r], "rank %d assigned twice", r)
		seen[r] = true
	}
}

func TestRankCycle(t *testing.T) {
	deps := [][]int{{1}, {0}}

	_, err := Rank(deps)
	require.Error(t, err)
	var cycleErr *CycleError
	require.ErrorAs(t, err, &cycleErr)
	assert.Equal(t, deps, cycleErr.Deps)
}

func TestRankSelfLoop(t *testing.T) {
	_, err := Rank([][]int{{0}})
	var cycleErr *CycleError
	require.ErrorAs(t, err, &cycleErr)
}

func TestStagesScenario(t *testing.T) {
	// The diamond-ish five-node graph: node 0 consumes 1, 2 (twice) and 4;
	// node 2 consumes 1 and 3; node 4 consumes 1.
	deps := [][]int{{1, 2, 2, 4}, {}, {1, 3}, {}, {1}}

	stages, err := Stages(deps, 0)
	require.NoError(t, err)
	require.Len(t, stages, 3)
	assert.ElementsMatch(t, []int{1, 3}, stages[0])
	assert.ElementsMatch(t, []int{2, 4}, stages[1])
	assert.Equal(t, []int{0}, stages[2])
}

func TestStagesEdgeCases(t *testing.T) {
	t.Run("empty graph", func(t *testing.T) {
		stages, err := Stages(nil, 0)
		require.NoError(t, err)
		assert.Empty(t, stages)
	})

	t.Run("single free node", func(t *testing.T) {
		stages, err := Stages([][]int{{}}, 0)
		require.NoError(t, err)
		assert.Equal(t, [][]int{{0}}, stages)
	})
}

func TestStagesTopologicalInvariant(t *testing.T) {
	deps := [][]int{
		{},        // 0
		{0},       // 1
		{0},       // 2
		{1, 2},    // 3
		{},        // 4
		{3, 4},    // 5
		{3},       // 6
		{5, 6, 0}, // 7
	}

	for _, width := range []int{0, 1, 2, 3} {
		stages, err := Stages(deps, width)
		require.NoError(t, err)

		stageOf := make(map[int]int)
		total := 0
		for s, stage := range stages {
			if width > 0 {
				assert.LessOrEqual(t, len(stage), width, "width %d exceeded in stage %d", width, s)
			}
			for _, v := range stage {
				_, dup := stageOf[v]
				require.False(t, dup, "node %d scheduled twice", v)
				stageOf[v] = s
			}
			total += len(stage)
		}
		require.Equal(t, len(deps), total, "partition must cover all nodes")

		for v, ds := range deps {
			for _, d := range ds {
				assert.Greater(t, stageOf[v], stageOf[d],
					"width %d: node %d must run strictly after dependency %d", width, v, d)
			}
		}
	}
}

func TestStagesWidthOne(t *testing.T) {
	// Three independent nodes with a final consumer: width 1 forces four
	// singleton stages.
	deps := [][]int{{}, {}, {}, {0, 1, 2}}

	stages, err := Stages(deps, 1)
	require.NoError(t, err)
	require.Len(t, stages, 4)
	for _, stage := range stages {
		assert.Len(t, stage, 1)
	}
	assert.Equal(t, []int{3}, stages[len(stages)-1])
}

func TestStagesCycle(t *testing.T) {
	_, err := Stages([][]int{{1}, {0}}, 0)
	var cycleErr *CycleError
	require.ErrorAs(t, err, &cycleErr)
}
