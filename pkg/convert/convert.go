// Package convert runs the lowering pipeline over a function: slots,
// phis, liveness, then one unit per block. Results are kept per function
// and built at most once, even under concurrent callers.
package convert

import (
	"sync"
	"time"

	"github.com/nikandfor/errors"
	"github.com/nikandfor/tlog"

	"github.com/xplshn/lltree/pkg/config"
	"github.com/xplshn/lltree/pkg/ir"
	"github.com/xplshn/lltree/pkg/liveness"
	"github.com/xplshn/lltree/pkg/lower"
	"github.com/xplshn/lltree/pkg/phi"
	"github.com/xplshn/lltree/pkg/slots"
	"github.com/xplshn/lltree/pkg/util"
)

type Converter struct {
	cfg     *config.Config
	factory lower.Factory

	mu      sync.Mutex
	entries map[*ir.Function]*entry
}

type entry struct {
	once sync.Once
	res  *lower.Function
	err  error
}

// New returns a converter building nodes with f. cfg is read on every build
// and must not change while conversions run.
func New(cfg *config.Config, f lower.Factory) *Converter {
	if cfg == nil { cfg = config.NewConfig() }
	return &Converter{cfg: cfg, factory: f, entries: map[*ir.Function]*entry{}}
}

// Convert returns the lowered form of fn. The first call builds it and
// every later call, concurrent or not, gets the same result or error.
// A panic during the build is kept as an ErrInvariant error.
func (c *Converter) Convert(fn *ir.Function) (*lower.Function, error) {
	c.mu.Lock()
	e, ok := c.entries[fn]
	if !ok {
		e = &entry{}
		c.entries[fn] = e
	}
	c.mu.Unlock()

	e.once.Do(func() {
		defer func() {
			if p := recover(); p != nil { e.res, e.err = nil, errors.Wrap(ir.ErrInvariant, "@%s: panic: %v", fn.Name, p) }
		}()
		e.res, e.err = c.build(fn)
	})
	return e.res, e.err
}

// Len is the number of functions seen so far.
func (c *Converter) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Converter) options() lower.Options {
	return lower.Options{
		Invalidate: c.cfg.IsFeatureEnabled(config.FeatInvalidate),
		Boundary:   c.cfg.IsFeatureEnabled(config.FeatBoundaryInvalidate),
		Locations:  c.cfg.IsFeatureEnabled(config.FeatLocations),
	}
}

func (c *Converter) build(fn *ir.Function) (*lower.Function, error) {
	if fn == nil { return nil, errors.Wrap(ir.ErrMalformed, "nil function") }
	start := time.Now()

	if err := fn.Verify(); err != nil { return nil, errors.Wrap(err, "@%s", fn.Name) }

	st := slots.Allocate(fn)
	phis := phi.NewTable(fn)

	live, err := liveness.Analyze(fn, st, phis)
	if err != nil { return nil, err }
	if c.cfg.IsFeatureEnabled(config.FeatVerifyLiveness) {
		if err := liveness.Verify(fn, st, phis, live); err != nil { return nil, errors.Wrap(err, "@%s", fn.Name) }
	}

	edges, err := phi.ResolveAll(fn, phis, st)
	if err != nil { return nil, errors.Wrap(err, "@%s", fn.Name) }

	var sym lower.SymbolResolver = lower.NewSymbols(c.factory, st)
	if c.cfg.IsFeatureEnabled(config.FeatSharedOperands) { sym = lower.NewMemo(sym) }

	v := lower.NewVisitor(c.factory, sym, st, c.cfg.Layout(), c.options())

	out := &lower.Function{
		Name:       fn.Name,
		Units:      make([]*lower.Unit, len(fn.Blocks)),
		SlotCount:  st.Count(),
		ParamSlots: st.ParamSlots(),
		Liveness:   live,
	}
	for i, b := range fn.Blocks {
		u, err := v.LowerBlock(b, &live.Blocks[i], edges.Sets[i])
		if err != nil { return nil, errors.Wrap(err, "@%s", fn.Name) }
		out.Units[i] = u
	}

	c.warn(fn, st, edges)

	tlog.V("convert").Printw("converted", "func", fn.Name, "blocks", len(fn.Blocks), "slots", st.Count(), "visits", live.Visits, "took", time.Since(start))

	return out, nil
}

func (c *Converter) warn(fn *ir.Function, st *slots.Table, edges *phi.Result) {
	warnDead := c.cfg.IsWarningEnabled(config.WarnDeadValue)
	warnParam := c.cfg.IsWarningEnabled(config.WarnUnusedParam)

	if warnDead || warnParam {
		read := make([]bool, st.Count())
		mark := func(x ir.Value) {
			if s, ok := st.Slot(x); ok { read[s] = true }
		}
		for _, b := range fn.Blocks {
			for _, inst := range b.Instrs {
				if p, ok := inst.(*ir.Phi); ok {
					for _, in := range p.Incoming {
						mark(in.Value)
					}
					continue
				}
				for _, x := range inst.Operands() {
					mark(x)
				}
			}
		}

		for _, b := range fn.Blocks {
			for _, inst := range b.Instrs {
				d := inst.Def()
				if d == nil { continue }
				if _, call := inst.(*ir.Call); call { continue }
				if s, ok := st.Lookup(d); ok && !read[s] && warnDead {
					util.Warn(c.cfg, config.WarnDeadValue, util.Pos{Func: fn.Name, Block: b.Name, Loc: inst.Location()}, "value %v is never read", d)
				}
			}
		}
		for _, p := range fn.Params {
			if s, ok := st.Lookup(p); ok && !read[s] && warnParam {
				util.Warn(c.cfg, config.WarnUnusedParam, util.Pos{Func: fn.Name}, "parameter %v is never read", p)
			}
		}
	}

	for _, col := range edges.Collapsed {
		util.Warn(c.cfg, config.WarnDuplicatePhiEdge, util.Pos{Func: fn.Name, Block: col.Phi.Block().Name, Loc: col.Phi.Location()}, "%v repeats predecessor %%%s", col.Phi.Dst, col.Pred.Name)
	}
}
