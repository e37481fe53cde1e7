package schedule

import (
	"fmt"
	"sort"
)

// CycleError reports that the ranking pass could not make progress: some
// nodes remained unrankable because their dependencies form a cycle. Graphs
// built by depgraph are acyclic by construction, so this is a defensive
// check that only fires on hand-built dependency lists.
type CycleError struct {
	Deps [][]int
}

// Error implements the error interface.
func (e *CycleError) Error() string {
	return fmt.Sprintf("dependency lists contain a cycle: %v", e.Deps)
}

// Rank assigns a deterministic topological rank 1..N to every node.
// Repeatedly, among the nodes whose dependencies are all ranked, the one
// whose descending-sorted list of dependency ranks compares lexicographically
// largest receives the next rank; ties go to the lower raw index. The
// particular tie-break only reorders symmetric subgraphs, never correctness.
func Rank(deps [][]int) ([]int, error) {
	n := len(deps)
	ranks := make([]int, n) // 0 = unranked

	for next := 1; next <= n; next++ {
		best := -1
		var bestKey []int
		for v := 0; v < n; v++ {
			if ranks[v] != 0 {
				continue
			}
			key, ready := depRankKey(deps[v], ranks)
			if !ready {
				continue
			}
			if best == -1 || lexLess(bestKey, key) {
				best, bestKey = v, key
			}
		}
		if best == -1 {
			return nil, &CycleError{Deps: deps}
		}
		ranks[best] = next
	}
	return ranks, nil
}

// depRankKey returns a node's dependency ranks sorted descending, or
// ready=false if any dependency is still unranked.
func depRankKey(deps []int, ranks []int) (key []int, ready bool) {
	key = make([]int, len(deps))
	for i, d := range deps {
		if ranks[d] == 0 {
			return nil, false
		}
		key[i] = ranks[d]
	}
	sort.Sort(sort.Reverse(sort.IntSlice(key)))
	return key, true
}

// lexLess reports whether a < b lexicographically, with a shorter list that
// prefixes a longer one comparing smaller.
func lexLess(a, b []int) bool {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return len(a) < len(b)
}

// Stages partitions nodes into the ordered, width-bounded stage list.
// Nodes are processed from last rank to first; each is placed in the
// earliest stage past all stages of the nodes depending on it that still has
// room. The result is reversed so stage 0 holds dependency-free roots and
// the final stage holds the terminal node(s). width <= 0 means unbounded.
//
// An empty input yields no stages; a single dependency-free node yields one
// singleton stage.
func Stages(deps [][]int, width int) ([][]int, error) {
	n := len(deps)
	if width <= 0 || width > n {
		width = n
	}
	if n == 0 {
		return nil, nil
	}

	ranks, err := Rank(deps)
	if err != nil {
		return nil, err
	}

	// byRank[r-1] is the node holding rank r.
	byRank := make([]int, n)
	for v, r := range ranks {
		byRank[r-1] = v
	}

	dependents := make([][]int, n)
	for v, ds := range deps {
		for _, d := range ds {
			dependents[d] = append(dependents[d], v)
		}
	}

	var stages [][]int
	level := make([]int, n)
	for i := n - 1; i >= 0; i-- {
		v := byRank[i]

		// One past the latest stage of anything consuming v.
		min := 0
		for _, w := range dependents[v] {
			if level[w]+1 > min {
				min = level[w] + 1
			}
		}

		s := min
		for s < len(stages) && len(stages[s]) >= width {
			s++
		}
		for s >= len(stages) {
			stages = append(stages, nil)
		}
		stages[s] = append(stages[s], v)
		level[v] = s
	}

	// Stages were grown from the terminal end; flip so roots run first.
	for i, j := 0, len(stages)-1; i < j; i, j = i+1, j-1 {
		stages[i], stages[j] = stages[j], stages[i]
	}
	return stages, nil
}
