package symex

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/speakeasy-api/symrename"
	"github.com/speakeasy-api/symrename/irep"
	"github.com/speakeasy-api/symrename/pkg/logging"
	"github.com/speakeasy-api/symrename/renaming"
)

// execEnv is the execution environment of one exploration.
type execEnv struct {
	ctx      context.Context
	opts     Options
	codes    []codeOp // Simplified view of the program
	warnings []string
	logger   logging.Logger // Logger for debug tracing
	execID   string         // Unique execution ID

	equations []Equation
	paths     []Path

	parked       map[int]*execState // first side to reach a join, by branch id
	nextBranchID int
}

// codeOp represents an instruction for execution.
type codeOp struct {
	op     int    // Opcode as int (from GetOp())
	value  any    // Opcode value
	opName string // Opcode name string (from OpString())
}

// Opcode constants matching the program encoding.
const (
	opNop int = iota
	opDecl
	opAssign
	opRead
	opAssume
	opBranch
	opJump
	opJoin
	opCall
	opRet
	opDead
	opThread
)

// newEnv creates a new execution environment.
func newEnv(ctx context.Context, opts Options) *execEnv {
	return &execEnv{
		ctx:      ctx,
		opts:     opts,
		warnings: make([]string, 0),
		logger:   opts.logger(),
		execID:   fmt.Sprintf("e%d", time.Now().UnixNano()%1000000),
		parked:   make(map[int]*execState),
	}
}

// execute explores every path of the program depth first and returns the
// equations emitted along the way.
func (env *execEnv) execute(rawCodes []any) (*Result, error) {
	env.codes = make([]codeOp, len(rawCodes))
	for i, rc := range rawCodes {
		env.codes[i] = codeOp{
			op:     getCodeOp(rc),
			value:  getCodeValue(rc),
			opName: getCodeOpName(rc),
		}
	}

	worklist := newStateWorklist()
	worklist.push(newExecState(env.opts))

	env.logger.With(map[string]any{
		"exec":  env.execID,
		"codes": len(env.codes),
	}).Infof("Starting path exploration")

	steps := 0
	for {
		if worklist.isEmpty() && !env.releaseParked(worklist) {
			break
		}

		steps++
		if steps > env.opts.MaxSteps {
			return nil, fmt.Errorf("exceeded maximum steps (%d) - possible infinite loop", env.opts.MaxSteps)
		}

		select {
		case <-env.ctx.Done():
			return nil, env.ctx.Err()
		default:
		}

		state := worklist.pop()

		if env.opts.EnableMemo && worklist.visit(state) {
			env.logger.With(map[string]any{
				"exec":  env.execID,
				"state": fmt.Sprintf("s%d", state.id),
				"pc":    state.pc,
			}).Debugf("Skipping memoized state")
			continue
		}

		if state.pc >= len(env.codes) {
			env.finish(state)
			continue
		}

		code := env.codes[state.pc]

		env.logger.With(map[string]any{
			"exec":    env.execID,
			"state":   fmt.Sprintf("s%d", state.id),
			"lineage": state.lineage,
			"pc":      state.pc,
			"op":      code.opName,
			"thread":  state.thread,
			"guard":   state.guard.String(),
		}).Debugf("Executing %s", code.opName)

		newStates, err := env.step(state, &code)
		if err != nil {
			return nil, fmt.Errorf("error at pc=%d op=%s: %w", state.pc, code.opName, err)
		}

		for _, newState := range newStates {
			if newState != state && newState.id == state.id {
				newState.id = worklist.nextStateID
				worklist.nextStateID++
				newState.parentID = state.id

				env.logger.With(map[string]any{
					"exec":    env.execID,
					"state":   fmt.Sprintf("s%d", newState.id),
					"parent":  fmt.Sprintf("s%d", newState.parentID),
					"lineage": newState.lineage,
					"pc":      newState.pc,
					"op":      code.opName,
				}).Debugf("Created successor state")
			}
			worklist.push(newState)
		}
	}

	env.logger.With(map[string]any{
		"exec":      env.execID,
		"paths":     len(env.paths),
		"equations": len(env.equations),
		"warnings":  len(env.warnings),
	}).Infof("Exploration completed")

	return &Result{
		Equations: env.equations,
		Paths:     env.paths,
		Warnings:  env.warnings,
		Steps:     steps,
		States:    worklist.nextStateID,
	}, nil
}

// step executes one instruction with contract violations annotated by
// the position they were raised at.
func (env *execEnv) step(state *execState, c *codeOp) (out []*execState, err error) {
	defer func() {
		if r := recover(); r != nil {
			if cv, ok := renaming.AsContractViolation(r); ok {
				panic(cv.WithContext("pc=%d op=%s state=%s", state.pc, c.opName, state.lineage))
			}
			panic(r)
		}
	}()
	return env.executeOp(state, c)
}

// executeOp executes an instruction on a state and returns successor states.
func (env *execEnv) executeOp(state *execState, c *codeOp) ([]*execState, error) {
	// Clone state and advance PC for normal continuation
	next := state.clone()
	next.pc++

	switch c.op {
	case opNop:
		return []*execState{next}, nil

	case opDecl:
		sym, err := operand[*irep.Symbol](c)
		if err != nil {
			return nil, err
		}
		if sym.Global {
			env.addWarning("decl of global %s at pc=%d ignored", sym.Ident, state.pc)
			return []*execState{next}, nil
		}
		next.active().frames.Install(sym, next.freshFrame(sym))
		return []*execState{next}, nil

	case opAssign:
		a, err := operand[symrename.Assign](c)
		if err != nil {
			return nil, err
		}
		env.execAssign(next, state.pc, a)
		return []*execState{next}, nil

	case opRead:
		e, err := operand[irep.Expr](c)
		if err != nil {
			return nil, err
		}
		env.emit(next, state.pc, Read, nil, env.value(next.rename(e)))
		return []*execState{next}, nil

	case opAssume:
		e, err := operand[irep.Expr](c)
		if err != nil {
			return nil, err
		}
		return env.execAssume(next, state.pc, e), nil

	case opBranch:
		b, err := operand[symrename.Branch](c)
		if err != nil {
			return nil, err
		}
		return env.execBranch(next, b), nil

	case opJump:
		target, err := operand[int](c)
		if err != nil {
			return nil, err
		}
		next.pc = target
		return []*execState{next}, nil

	case opJoin:
		return env.execJoin(next), nil

	case opCall:
		call, err := operand[symrename.Call](c)
		if err != nil {
			return nil, err
		}
		return env.execCall(next, call), nil

	case opRet:
		env.execRet(next)
		return []*execState{next}, nil

	case opDead:
		sym, err := operand[*irep.Symbol](c)
		if err != nil {
			return nil, err
		}
		if sym.Global {
			env.addWarning("dead of global %s at pc=%d ignored", sym.Ident, state.pc)
			return []*execState{next}, nil
		}
		t := next.active()
		if !t.frames.Installed(sym.Name) {
			return []*execState{next}, nil
		}
		next.ssa.Remove(t.frames.Rename(sym).(*irep.Symbol))
		t.frames.Remove(sym)
		return []*execState{next}, nil

	case opThread:
		id, err := operand[uint32](c)
		if err != nil {
			return nil, err
		}
		next.thread = id
		next.active()
		return []*execState{next}, nil

	default:
		return nil, fmt.Errorf("unknown opcode %d (%s)", c.op, c.opName)
	}
}

// execAssign renames the right-hand side in the current state, then
// allocates the next version of the target.
func (env *execEnv) execAssign(s *execState, pc int, a symrename.Assign) {
	rhs := env.value(s.rename(a.RHS))
	var constant irep.Expr
	if env.opts.ConstantPropagation {
		constant = rhs
	}
	lhs := s.ssa.MakeAssignment(s.level1(a.LHS), constant, rhs)
	env.emit(s, pc, Assignment, lhs, rhs)
}

// execAssume strengthens the guard. A literal false ends the path.
func (env *execEnv) execAssume(s *execState, pc int, cond irep.Expr) []*execState {
	c := irep.Simplify(s.rename(cond))
	if lit, ok := c.(*irep.Constant); ok {
		if lit.IsFalse() {
			env.logger.With(map[string]any{
				"exec":    env.execID,
				"lineage": s.lineage,
				"pc":      pc,
			}).Debugf("Assumption is false, path ends")
			return nil
		}
		if lit.IsTrue() {
			return []*execState{s}
		}
	}
	s.guard = irep.And(s.guard, c)
	env.emit(s, pc, Assume, nil, c)
	return []*execState{s}
}

// execBranch forks into the then side (pc+1) and the else side.
func (env *execEnv) execBranch(next *execState, b symrename.Branch) []*execState {
	cond := irep.Simplify(next.rename(b.Cond))
	env.nextBranchID++
	frame := branchFrame{
		id:      env.nextBranchID,
		cond:    cond,
		guard:   next.guard,
		lineage: next.lineage,
	}

	if lit, ok := cond.(*irep.Constant); ok {
		frame.single = true
		frame.then = lit.IsTrue()
		if !frame.then {
			next.pc = b.Else
		}
		next.branches = append(next.branches, frame)
		return []*execState{next}
	}

	thenState := next
	elseState := next.clone()

	frame.then = true
	thenState.branches = append(thenState.branches, frame)
	thenState.guard = irep.And(frame.guard, cond)
	thenState.lineage = frame.lineage + ".T"

	frame.then = false
	elseState.branches = append(elseState.branches, frame)
	elseState.guard = irep.And(frame.guard, irep.NewNotExpr(cond))
	elseState.pc = b.Else
	elseState.lineage = frame.lineage + ".F"

	// LIFO: the then side runs first.
	return []*execState{elseState, thenState}
}

// execJoin parks the first side of the innermost branch and merges it
// with the second.
func (env *execEnv) execJoin(s *execState) []*execState {
	if len(s.branches) == 0 {
		env.addWarning("join at pc=%d without an open branch", s.pc-1)
		return []*execState{s}
	}
	frame := s.branches[len(s.branches)-1]
	if frame.single {
		s.branches = s.branches[:len(s.branches)-1]
		return []*execState{s}
	}
	other, ok := env.parked[frame.id]
	if !ok {
		env.parked[frame.id] = s
		return nil
	}
	delete(env.parked, frame.id)
	if frame.then {
		return []*execState{env.merge(frame, s, other, s.pc-1)}
	}
	return []*execState{env.merge(frame, other, s, s.pc-1)}
}

// merge combines the two sides of a branch. Every key whose latest write
// differs gets a phi assignment selecting the then value under the branch
// condition and the else value otherwise.
func (env *execEnv) merge(frame branchFrame, thenState, elseState *execState, pc int) *execState {
	phi := renaming.SortedKeys(renaming.GetPhiSet(thenState.ssa, elseState.ssa))

	type phiOperand struct {
		sym *irep.Symbol
		rhs irep.Expr
	}
	operands := make([]phiOperand, 0, len(phi))
	for _, key := range phi {
		sym, ok := thenState.ssa.Symbol(key)
		if !ok {
			sym, _ = elseState.ssa.Symbol(key)
		}
		rhs := irep.NewIfExpr(frame.cond, thenState.ssa.Rename(sym), elseState.ssa.Rename(sym))
		operands = append(operands, phiOperand{sym: sym, rhs: env.value(rhs)})
	}

	merged := thenState
	merged.branches = merged.branches[:len(merged.branches)-1]
	merged.guard = frame.guard
	merged.lineage = frame.lineage + ".J"
	for name, n := range elseState.frameCounter {
		if n > merged.frameCounter[name] {
			merged.frameCounter[name] = n
		}
	}
	env.mergeThreads(merged, elseState, pc)

	for _, op := range operands {
		lhs := merged.ssa.MakeAssignment(op.sym, nil, op.rhs)
		env.emit(merged, pc, Phi, lhs, op.rhs)
	}

	if env.logger.IsEnabled(logging.LevelDebug) {
		keys := make([]string, len(phi))
		for i, key := range phi {
			keys[i] = key.String()
		}
		env.logger.With(map[string]any{
			"exec":    env.execID,
			"lineage": merged.lineage,
			"pc":      pc,
			"phi":     logging.TruncateList(keys, 8),
		}).Debugf("Merged branch %d", frame.id)
	}

	return merged
}

// mergeThreads adopts threads only the else side created and warns when
// the frame tables of a shared thread diverged.
func (env *execEnv) mergeThreads(merged, elseState *execState, pc int) {
	for _, id := range elseState.sortedThreads() {
		et := elseState.threads[id]
		mt, ok := merged.threads[id]
		if !ok {
			merged.threads[id] = et
			continue
		}
		if mt.frames.Fingerprint() != et.frames.Fingerprint() || len(mt.calls) != len(et.calls) {
			env.addWarning("frame tables of thread %d diverged across branch joined at pc=%d; keeping the then side", id, pc)
		}
	}
	if merged.thread != elseState.thread {
		env.addWarning("active thread diverged across branch joined at pc=%d; keeping thread %d", pc, merged.thread)
	}
}

// execCall saves the caller's frame table, instantiates the callee's
// locals in fresh frames and transfers control.
func (env *execEnv) execCall(s *execState, call symrename.Call) []*execState {
	t := s.active()
	if len(t.calls) >= env.opts.MaxCallDepth {
		env.addWarning("call depth %d exceeded at pc=%d on thread %d, path cut", env.opts.MaxCallDepth, s.pc-1, s.thread)
		return nil
	}
	t.calls = append(t.calls, callFrame{
		ret:    s.pc,
		saved:  t.frames.Clone(),
		locals: call.Locals,
	})
	for _, local := range call.Locals {
		t.frames.Install(local, s.freshFrame(local))
	}
	s.pc = call.Target
	return []*execState{s}
}

// execRet drops the callee's locals and restores the caller's frames.
// Locals the callee already killed are skipped. A return with no caller
// ends the path.
func (env *execEnv) execRet(s *execState) {
	t := s.active()
	if len(t.calls) == 0 {
		s.pc = len(env.codes)
		return
	}
	cf := t.calls[len(t.calls)-1]
	t.calls = t.calls[:len(t.calls)-1]
	for _, local := range cf.locals {
		if !t.frames.Installed(local.Name) {
			continue
		}
		s.ssa.Remove(t.frames.Rename(local).(*irep.Symbol))
	}
	t.frames = cf.saved.Clone()
	s.pc = cf.ret
}

// releaseParked resumes states whose join partner never arrived, innermost
// branch first. It reports whether anything was released.
func (env *execEnv) releaseParked(w *stateWorklist) bool {
	if len(env.parked) == 0 {
		return false
	}
	ids := make([]int, 0, len(env.parked))
	for id := range env.parked {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	id := ids[len(ids)-1]
	s := env.parked[id]
	delete(env.parked, id)
	s.branches = s.branches[:len(s.branches)-1]
	env.logger.With(map[string]any{
		"exec":    env.execID,
		"lineage": s.lineage,
		"pc":      s.pc,
	}).Debugf("Join of branch %d reached by one side only", id)
	w.push(s)
	return true
}

// finish records a completed path.
func (env *execEnv) finish(s *execState) {
	env.paths = append(env.paths, Path{
		Lineage: s.lineage,
		Guard:   s.guard,
		SSA:     s.ssa,
	})
	env.logger.With(map[string]any{
		"exec":    env.execID,
		"state":   fmt.Sprintf("s%d", s.id),
		"lineage": s.lineage,
		"guard":   s.guard.String(),
	}).Debugf("Terminal state reached")
}

// value simplifies e when constant propagation is on.
func (env *execEnv) value(e irep.Expr) irep.Expr {
	if env.opts.ConstantPropagation {
		return irep.Simplify(e)
	}
	return e
}

func (env *execEnv) emit(s *execState, pc int, kind EquationKind, lhs *irep.Symbol, rhs irep.Expr) {
	eq := Equation{
		Kind:    kind,
		PC:      pc,
		Lineage: s.lineage,
		Guard:   s.guard,
		LHS:     lhs,
		RHS:     rhs,
	}
	env.equations = append(env.equations, eq)
	env.logger.With(map[string]any{
		"exec":    env.execID,
		"lineage": s.lineage,
		"pc":      pc,
	}).Debugf("%s", eq)
}

// addWarning adds a warning message to the execution result.
func (env *execEnv) addWarning(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)

	// Always log warnings via logger
	env.logger.Warnf("%s", msg)

	// Also collect in warnings array if enabled
	if env.opts.EnableWarnings {
		env.warnings = append(env.warnings, msg)
	}
}

// operand asserts the instruction's operand type.
func operand[T any](c *codeOp) (T, error) {
	v, ok := c.value.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("%s: unexpected operand %T", c.opName, c.value)
	}
	return v, nil
}

// getCodeOp extracts the opcode int from a program code.
func getCodeOp(c any) int {
	if code, ok := c.(interface{ GetOp() int }); ok {
		return code.GetOp()
	}
	return -1 // Unknown opcode
}

// getCodeValue extracts the operand from a program code.
func getCodeValue(c any) any {
	if code, ok := c.(interface{ GetValue() any }); ok {
		return code.GetValue()
	}
	return nil
}

// getCodeOpName extracts the opcode name string from a program code.
func getCodeOpName(c any) string {
	if code, ok := c.(interface{ OpString() string }); ok {
		return code.OpString()
	}
	return "unknown"
}
