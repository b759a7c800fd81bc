package plugin

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"

	"github.com/evochora/evochora-sub009/internal/grid"
	"github.com/evochora/evochora-sub009/internal/organism"
	"github.com/evochora/evochora-sub009/internal/wire"
)

type namedInstance struct {
	name string
	inst any
}

// Registry holds the ordered hook lists the scheduler dispatches against.
// A plugin instance implementing more than one SPI interface is registered
// against each hook it implements, in a single call to Register.
type Registry struct {
	log           *slog.Logger
	ticks         []TickPlugin
	tickNames     []string
	interceptors  []Interceptor
	interceptorNames []string
	deathHandlers []DeathHandler
	deathHandlerNames []string
	birthHandlers []BirthHandler
	birthHandlerNames []string
	breakers      map[string]*gobreaker.CircuitBreaker
	instances     []namedInstance
}

// NewRegistry builds an empty registry that logs containment events to log.
func NewRegistry(log *slog.Logger) *Registry {
	return &Registry{log: log, breakers: make(map[string]*gobreaker.CircuitBreaker)}
}

// Register adds p to every hook list whose interface it satisfies.
func (r *Registry) Register(name string, p any) {
	if t, ok := p.(TickPlugin); ok {
		r.ticks = append(r.ticks, t)
		r.tickNames = append(r.tickNames, name)
	}
	if in, ok := p.(Interceptor); ok {
		r.interceptors = append(r.interceptors, in)
		r.interceptorNames = append(r.interceptorNames, name)
	}
	if d, ok := p.(DeathHandler); ok {
		r.deathHandlers = append(r.deathHandlers, d)
		r.deathHandlerNames = append(r.deathHandlerNames, name)
	}
	if b, ok := p.(BirthHandler); ok {
		r.birthHandlers = append(r.birthHandlers, b)
		r.birthHandlerNames = append(r.birthHandlerNames, name)
	}
	r.instances = append(r.instances, namedInstance{name: name, inst: p})
	r.breakers[name] = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    0,
		Timeout:     10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})
}

// SaveStates returns one wire.PluginState per registered instance, in
// registration order, for embedding in a captured snapshot/delta. Register
// accepts any value, so an instance that does not implement Stateful is
// skipped and contributes no entry.
func (r *Registry) SaveStates() ([]wire.PluginState, error) {
	out := make([]wire.PluginState, 0, len(r.instances))
	for _, ni := range r.instances {
		s, ok := ni.inst.(Stateful)
		if !ok {
			continue
		}
		blob, err := s.SaveState()
		if err != nil {
			return nil, fmt.Errorf("plugin: %q: save state: %w", ni.name, err)
		}
		out = append(out, wire.PluginState{PluginClass: ni.name, StateBlob: blob})
	}
	return out, nil
}

// TickPlugins returns the registered tick plugins in registration order.
func (r *Registry) TickPlugins() []TickPlugin { return r.ticks }

// Interceptors returns the registered interceptors in registration order.
func (r *Registry) Interceptors() []Interceptor { return r.interceptors }

// DeathHandlers returns the registered death handlers in registration order.
func (r *Registry) DeathHandlers() []DeathHandler { return r.deathHandlers }

// BirthHandlers returns the registered birth handlers in registration order.
func (r *Registry) BirthHandlers() []BirthHandler { return r.birthHandlers }

// TickPluginNames returns the registration name at the same index as
// TickPlugins, for routing each call through its own circuit breaker.
func (r *Registry) TickPluginNames() []string { return r.tickNames }

// InterceptorNames returns the registration name at the same index as
// Interceptors.
func (r *Registry) InterceptorNames() []string { return r.interceptorNames }

// DeathHandlerNames returns the registration name at the same index as
// DeathHandlers.
func (r *Registry) DeathHandlerNames() []string { return r.deathHandlerNames }

// BirthHandlerNames returns the registration name at the same index as
// BirthHandlers.
func (r *Registry) BirthHandlerNames() []string { return r.birthHandlerNames }

// RunTick invokes every registered tick plugin, in order. Each call is
// routed through that plugin's circuit breaker: a plugin that has failed
// repeatedly trips open and is skipped (logged at warn) until its cooldown
// elapses, instead of being retried every tick. Any single failure or panic
// is caught and logged; the tick continues either way. There is no single
// organism in scope for a tick plugin, so the warn log carries only the
// plugin class and tick.
func (r *Registry) RunTick(name string, engine EngineView, p TickPlugin) {
	r.guarded(name, engine.CurrentTick(), 0, false, func() error { return p.Execute(engine) })
}

// RunIntercept routes one interceptor call through its breaker.
func (r *Registry) RunIntercept(name string, in Interceptor, ctx *InterceptionContext, tick uint64) {
	r.guarded(name, tick, ctx.Organism.ID, true, func() error { return in.Intercept(ctx) })
}

// RunDeath routes one death-handler call through its breaker.
func (r *Registry) RunDeath(name string, h DeathHandler, ctx *DeathContext, tick uint64) {
	r.guarded(name, tick, ctx.Organism.ID, true, func() error { return h.OnDeath(ctx) })
}

// RunBirth routes one birth-handler call through its breaker.
func (r *Registry) RunBirth(name string, h BirthHandler, child *organism.Organism, g *grid.Grid, tick uint64) {
	r.guarded(name, tick, child.ID, true, func() error { return h.OnBirth(child, g) })
}

// guarded runs fn through name's circuit breaker, recovering any panic as a
// failure so a misbehaving plugin can never crash the tick or the process.
// Every caught failure — returned error or recovered panic — is logged at
// warn with the plugin class, tick, and (when the call is organism-scoped)
// the organism id, per the PluginFailure containment policy.
func (r *Registry) guarded(name string, tick uint64, organismID int32, hasOrganism bool, fn func() error) {
	safeFn := func() (err error) {
		defer func() {
			if rec := recover(); rec != nil {
				err = fmt.Errorf("recovered panic: %v", rec)
			}
		}()
		return fn()
	}

	warn := func(msg string, extra ...any) {
		args := []any{"plugin", name, "tick", tick}
		if hasOrganism {
			args = append(args, "organism", organismID)
		}
		args = append(args, extra...)
		r.log.Warn(msg, args...)
	}

	br, ok := r.breakers[name]
	if !ok {
		if err := safeFn(); err != nil {
			warn("plugin failure", "error", err)
		}
		return
	}
	_, err := br.Execute(func() (any, error) {
		return nil, safeFn()
	})
	if err == gobreaker.ErrOpenState {
		warn("plugin circuit open, skipping")
		return
	}
	if err != nil {
		warn("plugin failure", "error", err)
	}
}
