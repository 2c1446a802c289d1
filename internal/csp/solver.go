package csp

import (
	"math/rand"
	"time"
)

// SolverOptions configures one solver instance.
type SolverOptions struct {
	// MaxIterations is a single global budget decremented once per recursive
	// call. When it runs out the whole search aborts as failed.
	MaxIterations int
	// Seed fixes the candidate shuffle for reproducible runs. Zero means a
	// time-based seed, preserving the original randomized exploration.
	Seed int64
}

// DefaultMaxIterations mirrors the budget the generator has always shipped with.
const DefaultMaxIterations = 5000

// Result is the outcome of one solve call.
type Result struct {
	Success        bool
	Assignment     Assignment
	HardViolations []string
	Iterations     int
}

// Solver runs chronological backtracking over a fixed variable order: the
// sessions in load order, each with its candidate domain shuffled per attempt.
// The solver owns its assignment map for the duration of a Solve call and is
// not safe for concurrent use.
type Solver struct {
	variables []Session
	domains   map[string][]Candidate
	checker   *Checker
	rng       *rand.Rand

	assignment Assignment
	trail      []decision
	budget     int
	iterations int
}

// decision is one entry on the undo trail: which session was assigned at which
// search depth. Keeping the trail explicit leaves room for smarter
// backjumping strategies behind the same interface.
type decision struct {
	sessionID string
	depth     int
}

// NewSolver builds a solver over the sessions and their domains. Sessions
// listed in the domain set as unschedulable simply have no domain entry and
// make the search fail immediately, which is the caller's cue to report them.
func NewSolver(sessions []Session, domains *DomainSet, checker *Checker, opts SolverOptions) *Solver {
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	maxIterations := opts.MaxIterations
	if maxIterations <= 0 {
		maxIterations = DefaultMaxIterations
	}
	return &Solver{
		variables: sessions,
		domains:   domains.Domains,
		checker:   checker,
		rng:       rand.New(rand.NewSource(seed)),
		budget:    maxIterations,
	}
}

// Solve searches for a complete assignment. It returns the first full
// assignment found, or a failed result with the hard-violation trail when the
// iteration budget is exhausted or every branch is dead.
func (s *Solver) Solve() Result {
	s.assignment = make(Assignment, len(s.variables))
	s.trail = s.trail[:0]
	s.iterations = 0
	s.checker.Reset()

	success := s.backtrack(0)

	result := Result{
		Success:        success,
		HardViolations: append([]string(nil), s.checker.Violations()...),
		Iterations:     s.iterations,
	}
	if success {
		result.Assignment = s.assignment.Clone()
	}
	return result
}

func (s *Solver) backtrack(index int) bool {
	if index >= len(s.variables) {
		return true
	}
	if s.budget <= 0 {
		return false
	}
	s.budget--
	s.iterations++

	session := s.variables[index]
	domain := s.domains[session.SessionID]

	// Shuffle a copy so repeated attempts over the same domain set explore
	// different orders without disturbing the shared domains.
	candidates := make([]Candidate, len(domain))
	copy(candidates, domain)
	s.rng.Shuffle(len(candidates), func(i, j int) {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	})

	for _, cand := range candidates {
		if !s.checker.Admissible(s.assignment, session, cand) {
			continue
		}
		s.assign(session.SessionID, cand, index)
		if s.backtrack(index + 1) {
			return true
		}
		s.undo()
	}

	return false
}

func (s *Solver) assign(sessionID string, cand Candidate, depth int) {
	s.assignment[sessionID] = cand
	s.trail = append(s.trail, decision{sessionID: sessionID, depth: depth})
}

func (s *Solver) undo() {
	last := s.trail[len(s.trail)-1]
	s.trail = s.trail[:len(s.trail)-1]
	delete(s.assignment, last.sessionID)
}
