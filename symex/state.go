package symex

import (
	"crypto/sha256"
	"encoding/binary"
	"maps"
	"slices"

	"github.com/speakeasy-api/symrename/irep"
	"github.com/speakeasy-api/symrename/renaming"
)

// threadState is the per-thread part of a path: the frame table of the
// running function and the frames of its callers.
type threadState struct {
	frames *renaming.FrameLevel
	calls  []callFrame
}

// callFrame is pushed by a call and popped by the matching ret.
type callFrame struct {
	ret    int                  // return address
	saved  *renaming.FrameLevel // caller's frame table, restored on return
	locals []*irep.Symbol       // callee locals, dropped from the SSA table on return
}

// branchFrame records an open two-way fork until both sides reach the join.
type branchFrame struct {
	id      int
	cond    irep.Expr // renamed condition, the phi selector
	guard   irep.Expr // guard at the fork
	lineage string    // lineage at the fork
	then    bool      // which side this state took
	single  bool      // condition was a literal; only one side exists
}

// execState is one path through the program.
type execState struct {
	pc       int
	thread   uint32                  // active modeled thread
	threads  map[uint32]*threadState // frame tables per thread
	ssa      *renaming.SSALevel      // one table for all threads; keys carry the thread
	guard    irep.Expr               // path condition
	branches []branchFrame           // open forks, innermost last

	// frameCounter is the highest frame instance handed out per base
	// name on this path. New instances are counter+1, so installs never
	// move a key backwards.
	frameCounter map[irep.Name]uint32

	// State tracking for logging
	id       int    // Unique state ID
	parentID int    // Parent state ID (0 for root)
	lineage  string // Lineage string (e.g., "0", "0.T", "0.T.J")
}

// newExecState creates the initial state: thread 0, empty tables, guard true.
func newExecState(opts Options) *execState {
	return &execState{
		pc:     0,
		thread: 0,
		threads: map[uint32]*threadState{
			0: {frames: renaming.NewFrameLevel(0)},
		},
		ssa:          renaming.NewSSALevel(renaming.SSAOptions{ConstantPropagation: opts.ConstantPropagation}),
		guard:        irep.NewBool(true),
		branches:     make([]branchFrame, 0, 4),
		frameCounter: make(map[irep.Name]uint32),
		id:           0,
		parentID:     0,
		lineage:      "0",
	}
}

// clone creates an independent copy of this state for forking. The SSA
// table is copy-on-write; frame tables are copied eagerly.
func (s *execState) clone() *execState {
	threads := make(map[uint32]*threadState, len(s.threads))
	for id, t := range s.threads {
		threads[id] = &threadState{
			frames: t.frames.Clone(),
			calls:  slices.Clone(t.calls),
		}
	}
	return &execState{
		pc:           s.pc,
		thread:       s.thread,
		threads:      threads,
		ssa:          s.ssa.Clone(),
		guard:        s.guard,
		branches:     slices.Clone(s.branches),
		frameCounter: maps.Clone(s.frameCounter),
		id:           s.id,       // Clone inherits ID initially, will be reassigned
		parentID:     s.parentID, // Clone inherits parent
		lineage:      s.lineage,  // Clone inherits lineage, will be extended
	}
}

// active returns the running thread's frames, creating them on first use.
func (s *execState) active() *threadState {
	t, ok := s.threads[s.thread]
	if !ok {
		t = &threadState{frames: renaming.NewFrameLevel(s.thread)}
		s.threads[s.thread] = t
	}
	return t
}

// freshFrame hands out the next frame instance for sym on this path.
func (s *execState) freshFrame(sym *irep.Symbol) uint32 {
	n := s.frameCounter[sym.Name] + 1
	s.frameCounter[sym.Name] = n
	return n
}

// rename qualifies e for reading in the active thread.
func (s *execState) rename(e irep.Expr) irep.Expr {
	return renaming.RenameAll(e, s.active().frames, s.ssa)
}

// level1 qualifies a write target in the active thread.
func (s *execState) level1(sym *irep.Symbol) *irep.Symbol {
	return s.active().frames.Rename(sym).(*irep.Symbol)
}

func (s *execState) sortedThreads() []uint32 {
	ids := slices.Collect(maps.Keys(s.threads))
	slices.Sort(ids)
	return ids
}

// fingerprint computes a hash of this state for memoization.
// Includes: pc, active thread, guard, SSA table, frame tables, call
// stacks and open branches.
func (s *execState) fingerprint() uint64 {
	h := sha256.New()

	binary.Write(h, binary.LittleEndian, uint64(s.pc))
	binary.Write(h, binary.LittleEndian, s.thread)
	h.Write([]byte(s.guard.String()))
	h.Write([]byte{0})

	s.ssa.WriteFingerprint(h)

	for _, id := range s.sortedThreads() {
		t := s.threads[id]
		t.frames.WriteFingerprint(h)
		binary.Write(h, binary.LittleEndian, uint64(len(t.calls)))
		for _, c := range t.calls {
			binary.Write(h, binary.LittleEndian, uint64(c.ret))
		}
	}

	binary.Write(h, binary.LittleEndian, uint64(len(s.branches)))
	for _, b := range s.branches {
		binary.Write(h, binary.LittleEndian, uint64(b.id))
		binary.Write(h, binary.LittleEndian, b.then)
	}

	sum := h.Sum(nil)
	return binary.LittleEndian.Uint64(sum[:8])
}

// stateWorklist manages the queue of states to execute.
type stateWorklist struct {
	states      []*execState
	seen        map[uint64]bool // Memoization: fingerprint → visited
	nextStateID int             // Monotonic counter for state IDs
}

// newStateWorklist creates a new worklist.
func newStateWorklist() *stateWorklist {
	return &stateWorklist{
		states:      make([]*execState, 0, 32),
		seen:        make(map[uint64]bool),
		nextStateID: 1, // Start from 1 (0 is reserved for root)
	}
}

// push adds a state to the worklist.
func (w *stateWorklist) push(state *execState) {
	w.states = append(w.states, state)
}

// pop removes and returns the next state (LIFO, depth-first).
func (w *stateWorklist) pop() *execState {
	if len(w.states) == 0 {
		return nil
	}
	state := w.states[len(w.states)-1]
	w.states = w.states[:len(w.states)-1]
	return state
}

// isEmpty checks if worklist is empty.
func (w *stateWorklist) isEmpty() bool {
	return len(w.states) == 0
}

// visit marks the state seen and reports whether it had been seen before.
func (w *stateWorklist) visit(state *execState) bool {
	fp := state.fingerprint()
	if w.seen[fp] {
		return true
	}
	w.seen[fp] = true
	return false
}
