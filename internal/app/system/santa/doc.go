// Package santa computes Secret Santa assignments.
//
// Given the active members of a group and a symmetric exclusion graph, Draw
// returns a giver→receiver bijection with no fixed point and no excluded
// pair. The default strategy is bounded rejection sampling over uniformly
// shuffled permutations; Solve offers a constructive matching that can
// prove infeasibility for dense exclusion graphs.
//
// Everything here is a pure function of its inputs and the *rand.Rand it is
// handed, so tests can pin a seed and assert exact outputs.
package santa
