package santa

import (
	"errors"
	"fmt"
	"math/rand"
	"time"
)

const (
	// MinMembers is the smallest group a draw accepts.
	MinMembers = 3
	// DefaultMaxAttempts bounds rejection sampling when Options leaves it zero.
	DefaultMaxAttempts = 1000
)

var (
	// ErrInfeasible means no valid assignment was found. After Assign it only
	// means the attempt budget ran out; after Solve it is a proof.
	ErrInfeasible = errors.New("santa: no valid assignment satisfies the exclusions")
	// ErrTooFewMembers is returned for fewer than MinMembers participants.
	ErrTooFewMembers = fmt.Errorf("santa: at least %d members are required", MinMembers)
)

// Pair is one giver→receiver edge of a draw.
type Pair[ID comparable] struct {
	Giver    ID
	Receiver ID
}

// Options controls Draw.
type Options struct {
	// MaxAttempts bounds rejection sampling. Zero means DefaultMaxAttempts.
	MaxAttempts int
	// Constructive runs Solve when sampling exhausts its budget.
	Constructive bool
	// Rand is the only randomness used. Nil seeds from the wall clock.
	Rand *rand.Rand
}

// NewRand returns a source seeded from the wall clock, or from seed when it
// is non-zero.
func NewRand(seed int64) *rand.Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}

// Draw runs Assign and, if opts.Constructive is set and sampling fails,
// falls back to Solve.
func Draw[ID comparable](members []ID, excl Adjacency[ID], opts Options) ([]Pair[ID], error) {
	rng := opts.Rand
	if rng == nil {
		rng = NewRand(0)
	}
	pairs, err := Assign(members, excl, opts.MaxAttempts, rng)
	if err == nil || !errors.Is(err, ErrInfeasible) || !opts.Constructive {
		return pairs, err
	}
	return Solve(members, excl, rng)
}

// Assign is bounded rejection sampling: shuffle the members into a candidate
// receiver list, accept it if no position maps to itself or to an excluded
// receiver, and give up after maxAttempts shuffles.
func Assign[ID comparable](members []ID, excl Adjacency[ID], maxAttempts int, rng *rand.Rand) ([]Pair[ID], error) {
	if len(members) < MinMembers {
		return nil, ErrTooFewMembers
	}
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if rng == nil {
		rng = NewRand(0)
	}

	receivers := make([]ID, len(members))
	for attempt := 0; attempt < maxAttempts; attempt++ {
		copy(receivers, members)
		// rand.Shuffle is an unbiased Fisher–Yates.
		rng.Shuffle(len(receivers), func(i, j int) {
			receivers[i], receivers[j] = receivers[j], receivers[i]
		})
		if valid(members, receivers, excl) {
			return zip(members, receivers), nil
		}
	}
	return nil, ErrInfeasible
}

func valid[ID comparable](givers, receivers []ID, excl Adjacency[ID]) bool {
	for i, g := range givers {
		if !excl.allowed(g, receivers[i]) {
			return false
		}
	}
	return true
}

func zip[ID comparable](givers, receivers []ID) []Pair[ID] {
	pairs := make([]Pair[ID], len(givers))
	for i := range givers {
		pairs[i] = Pair[ID]{Giver: givers[i], Receiver: receivers[i]}
	}
	return pairs
}

// Verify checks that pairs is a complete, valid assignment over members.
func Verify[ID comparable](members []ID, excl Adjacency[ID], pairs []Pair[ID]) error {
	if len(pairs) != len(members) {
		return fmt.Errorf("santa: %d pairs for %d members", len(pairs), len(members))
	}
	want := make(map[ID]struct{}, len(members))
	for _, m := range members {
		want[m] = struct{}{}
	}
	gave := make(map[ID]struct{}, len(pairs))
	got := make(map[ID]struct{}, len(pairs))
	for _, p := range pairs {
		if _, ok := want[p.Giver]; !ok {
			return fmt.Errorf("santa: giver %v is not a member", p.Giver)
		}
		if _, ok := want[p.Receiver]; !ok {
			return fmt.Errorf("santa: receiver %v is not a member", p.Receiver)
		}
		if _, dup := gave[p.Giver]; dup {
			return fmt.Errorf("santa: %v gives twice", p.Giver)
		}
		if _, dup := got[p.Receiver]; dup {
			return fmt.Errorf("santa: %v receives twice", p.Receiver)
		}
		if p.Giver == p.Receiver {
			return fmt.Errorf("santa: %v is assigned to themselves", p.Giver)
		}
		if excl.Excluded(p.Giver, p.Receiver) {
			return fmt.Errorf("santa: %v→%v is excluded", p.Giver, p.Receiver)
		}
		gave[p.Giver] = struct{}{}
		got[p.Receiver] = struct{}{}
	}
	return nil
}
