package engine

import (
	"github.com/evochora/evochora-sub009/internal/organism"
	"github.com/evochora/evochora-sub009/internal/plugin"
	"github.com/evochora/evochora-sub009/internal/resolver"
	"github.com/evochora/evochora-sub009/internal/vm"
	"github.com/evochora/evochora-sub009/internal/wire"
)

// Tick advances the simulation by exactly one tick (spec.md §4.4): tick
// plugins run sequentially, every alive organism is planned and (subject to
// conflict resolution) executed, newly-dead organisms are handled in
// stable index order, newborns are finalized, and the result is fed to the
// capture codec. It returns the sealed chunk on the tick that fills one,
// otherwise a nil chunk; the error is nil on success. Any error is a planning bug and aborts the
// tick — no partial state has been mutated for organisms not yet planned,
// but organisms already executed this tick keep their effects.
func (e *Engine) Tick() (*wire.TickDataChunk, error) {
	e.runTickPlugins()

	aliveIdx := make([]int, 0, len(e.organisms))
	for i, o := range e.organisms {
		if !o.IsDead {
			aliveIdx = append(aliveIdx, i)
		}
	}

	instructions := make([]*vm.Instruction, len(e.organisms))
	var newborns []*organism.Organism
	ctx := &vm.ExecContext{Tick: e.currentTick, AllocID: e.allocID, Newborns: &newborns}

	P := e.scaling.resolve(len(aliveIdx), e.pool.Size())

	var executedOrder []int
	var err error
	if P <= 1 || len(aliveIdx) <= 1 {
		executedOrder, err = e.tickSequential(aliveIdx, instructions, ctx)
	} else {
		executedOrder, err = e.tickParallel(aliveIdx, instructions, ctx, P)
	}
	if err != nil {
		return nil, err
	}

	for _, idx := range executedOrder {
		e.postExecute(instructions[idx])
	}
	for _, idx := range executedOrder {
		o := e.organisms[idx]
		if o.IsDead {
			e.handleDeath(o)
		}
	}
	for _, child := range newborns {
		e.finalizeBirth(child)
		e.organisms = append(e.organisms, child)
	}

	tick := e.currentTick
	e.currentTick++

	rngState, err := e.rngProvider.SaveState()
	if err != nil {
		return nil, err
	}
	pluginStates, err := e.plugins.SaveStates()
	if err != nil {
		return nil, err
	}
	chunk, sealed := e.encoder.CaptureTick(tick, e.g, e.organisms, e.totalOrganismsCreated, rngState, pluginStates, e.census.All())
	if !sealed {
		return nil, nil
	}
	return chunk, nil
}

func (e *Engine) runTickPlugins() {
	plugins := e.plugins.TickPlugins()
	names := e.plugins.TickPluginNames()
	for i, p := range plugins {
		e.plugins.RunTick(names[i], e, p)
	}
}

// tickSequential plans, intercepts, resolves, and executes every alive
// organism in ascending roster-index order, with no worker pool involved.
func (e *Engine) tickSequential(aliveIdx []int, instructions []*vm.Instruction, ctx *vm.ExecContext) ([]int, error) {
	for _, idx := range aliveIdx {
		o := e.organisms[idx]
		in, err := e.vm.Plan(o)
		if err != nil {
			return nil, err
		}
		in = e.intercept(0, o, in)
		instructions[idx] = in
	}

	planned := make([]*vm.Instruction, len(aliveIdx))
	for i, idx := range aliveIdx {
		planned[i] = instructions[idx]
	}
	resolver.Resolve(planned)

	for _, in := range planned {
		e.vm.Execute(in, ctx)
	}
	return aliveIdx, nil
}

// tickParallel dispatches planning (and wave-1 execute) for aliveIdx across
// P workers, merges each worker's wave-2 backlog in worker order — which
// pool.Dispatch guarantees is already ascending roster-index order — runs
// conflict resolution over wave 2 only, and executes wave 2 sequentially.
// It returns the combined execution order: wave 1 first, then wave 2, both
// ascending, matching spec.md §5's death/penalty ordering guarantee.
func (e *Engine) tickParallel(aliveIdx []int, instructions []*vm.Instruction, ctx *vm.ExecContext, P int) ([]int, error) {
	wave2PerWorker := make([][]int, P)
	planErrs := make([]error, P)

	_ = e.pool.Dispatch(len(aliveIdx), P, func(threadIndex, from, to int) {
		var local []int
		for i := from; i < to; i++ {
			orgIdx := aliveIdx[i]
			o := e.organisms[orgIdx]
			in, err := e.vm.Plan(o)
			if err != nil {
				planErrs[threadIndex] = err
				return
			}
			in = e.intercept(threadIndex, o, in)
			instructions[orgIdx] = in
			if in.IsParallelExecuteSafe() {
				e.vm.Execute(in, nil)
			} else {
				local = append(local, orgIdx)
			}
		}
		wave2PerWorker[threadIndex] = local
	})

	for _, perr := range planErrs {
		if perr != nil {
			return nil, perr
		}
	}

	var wave1, wave2 []int
	wave2Set := make(map[int]bool)
	for t := 0; t < P; t++ {
		wave2 = append(wave2, wave2PerWorker[t]...)
	}
	for _, idx := range wave2 {
		wave2Set[idx] = true
	}
	for _, idx := range aliveIdx {
		if !wave2Set[idx] {
			wave1 = append(wave1, idx)
		}
	}

	wave2Instrs := make([]*vm.Instruction, len(wave2))
	for i, idx := range wave2 {
		wave2Instrs[i] = instructions[idx]
	}
	resolver.Resolve(wave2Instrs)
	for _, in := range wave2Instrs {
		e.vm.Execute(in, ctx)
	}

	return append(wave1, wave2...), nil
}

func (e *Engine) intercept(threadIndex int, o *organism.Organism, in *vm.Instruction) *vm.Instruction {
	interceptors := e.plugins.Interceptors()
	if len(interceptors) == 0 {
		return in
	}
	names := e.plugins.InterceptorNames()
	ictx := e.interceptCtxs[threadIndex]
	ictx.Organism = o
	ictx.Instruction = in
	for i, interceptor := range interceptors {
		e.plugins.RunIntercept(names[i], interceptor, ictx, e.currentTick)
	}
	return ictx.Instruction
}

// postExecute applies the error-energy-penalty step that Execute itself
// deliberately never charges: an organism whose instruction failed (not
// merely lost a conflict — vm.Execute already resets that flag) pays
// errorPenaltyCost, and an organism left at or below zero energy dies here
// rather than waiting for its next turn to notice.
func (e *Engine) postExecute(in *vm.Instruction) {
	o := in.Organism
	if o.IsDead {
		// DIE sets IsDead directly (it has no tick number to record, only
		// the scheduler does); stamp the death tick here so every death,
		// however triggered, carries it.
		if !o.HasDeathTick {
			o.HasDeathTick = true
			o.DeathTick = e.currentTick
		}
		return
	}
	if o.InstructionFailed {
		o.Energy -= e.errorPenaltyCost
	}
	if o.Energy <= 0 {
		o.Kill(e.currentTick, "energy depleted")
	}
}

// handleDeath runs every registered death handler once per cell the
// organism owned at the moment of death, in ascending cell-index order,
// then clears its ownership from the grid.
func (e *Engine) handleDeath(o *organism.Organism) {
	ctx := plugin.NewDeathContext(o, e.g)
	handlers := e.plugins.DeathHandlers()
	names := e.plugins.DeathHandlerNames()
	for _, idx := range ctx.OwnedIndices() {
		ctx.CurrentCell = idx
		for i, h := range handlers {
			e.plugins.RunDeath(names[i], h, ctx, e.currentTick)
		}
	}
	e.g.ClearOwnershipFor(o.ID)
}
