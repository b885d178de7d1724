package santa

// Rule is an unordered pair of participants that must not draw each other.
type Rule[ID comparable] struct {
	A, B ID
}

// Adjacency is a symmetric exclusion graph: b ∈ adj[a] ⇔ a ∈ adj[b].
type Adjacency[ID comparable] map[ID]map[ID]struct{}

// BuildAdjacency inserts every rule in both directions. Duplicate rules are
// absorbed by set semantics.
func BuildAdjacency[ID comparable](rules []Rule[ID]) Adjacency[ID] {
	adj := make(Adjacency[ID], len(rules)*2)
	for _, r := range rules {
		adj.Add(r.A, r.B)
	}
	return adj
}

// Add records that a and b exclude each other.
func (adj Adjacency[ID]) Add(a, b ID) {
	adj.link(a, b)
	adj.link(b, a)
}

func (adj Adjacency[ID]) link(from, to ID) {
	set, ok := adj[from]
	if !ok {
		set = make(map[ID]struct{})
		adj[from] = set
	}
	set[to] = struct{}{}
}

// Excluded reports whether giver may not be assigned receiver. A nil
// Adjacency excludes nothing.
func (adj Adjacency[ID]) Excluded(giver, receiver ID) bool {
	_, ok := adj[giver][receiver]
	return ok
}

// Of returns the participants excluded for id, in no particular order.
func (adj Adjacency[ID]) Of(id ID) []ID {
	set := adj[id]
	if len(set) == 0 {
		return nil
	}
	out := make([]ID, 0, len(set))
	for other := range set {
		out = append(out, other)
	}
	return out
}

// allowed is the edge predicate of the giver×receiver bipartite graph.
func (adj Adjacency[ID]) allowed(giver, receiver ID) bool {
	return giver != receiver && !adj.Excluded(giver, receiver)
}
