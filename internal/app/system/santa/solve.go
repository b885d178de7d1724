package santa

import "math/rand"

// Solve finds an assignment constructively by treating the draw as a
// perfect matching between givers and receivers, where an edge exists
// unless the pair is the same person or excluded. It returns ErrInfeasible
// only when no perfect matching exists.
//
// Candidate order is shuffled with rng so repeated draws vary, but the
// result is not uniformly distributed the way Assign's is.
func Solve[ID comparable](members []ID, excl Adjacency[ID], rng *rand.Rand) ([]Pair[ID], error) {
	n := len(members)
	if n < MinMembers {
		return nil, ErrTooFewMembers
	}
	if rng == nil {
		rng = NewRand(0)
	}

	// candidates[g] lists receiver indexes giver g may draw.
	candidates := make([][]int, n)
	indegree := make([]int, n)
	for g := range members {
		for r := range members {
			if excl.allowed(members[g], members[r]) {
				candidates[g] = append(candidates[g], r)
				indegree[r]++
			}
		}
		rng.Shuffle(len(candidates[g]), func(i, j int) {
			candidates[g][i], candidates[g][j] = candidates[g][j], candidates[g][i]
		})
	}

	// Hall's condition for singleton sets: cheap rejection before searching.
	for i := 0; i < n; i++ {
		if len(candidates[i]) == 0 || indegree[i] == 0 {
			return nil, ErrInfeasible
		}
	}

	order := rng.Perm(n)
	giverOf := make([]int, n) // receiver index → giver index
	for i := range giverOf {
		giverOf[i] = -1
	}
	for _, g := range order {
		seen := make([]bool, n)
		if !augment(g, candidates, giverOf, seen) {
			return nil, ErrInfeasible
		}
	}

	receiverOf := make([]int, n)
	for r, g := range giverOf {
		receiverOf[g] = r
	}
	pairs := make([]Pair[ID], n)
	for g := range members {
		pairs[g] = Pair[ID]{Giver: members[g], Receiver: members[receiverOf[g]]}
	}
	return pairs, nil
}

// augment is Kuhn's augmenting-path step.
func augment(g int, candidates [][]int, giverOf []int, seen []bool) bool {
	for _, r := range candidates[g] {
		if seen[r] {
			continue
		}
		seen[r] = true
		if giverOf[r] == -1 || augment(giverOf[r], candidates, giverOf, seen) {
			giverOf[r] = g
			return true
		}
	}
	return false
}
