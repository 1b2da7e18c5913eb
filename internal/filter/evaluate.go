package filter

import (
	"cmp"
	"fmt"
	"slices"
	"time"

	"github.com/listeverything/finder/internal/logger"
)

// SourceFunc produces the base collection for one context.
type SourceFunc func(ctx Context) ([]Entity, error)

// SourceTable maps base collections to their sources.
type SourceTable map[BaseKind]SourceFunc

// Recorder receives evaluation measurements. Implementations must be cheap.
type Recorder interface {
	ObserveEvaluation(base BaseKind, results int, elapsed time.Duration)
	PredicateFailures(kind string, count int)
}

// Evaluator runs trees against contexts.
type Evaluator struct {
	Sources SourceTable
	// GodMode keeps entities the player cannot perceive.
	GodMode bool
	Log     logger.Logger
	Metrics Recorder
}

// NewEvaluator creates an evaluator over sources.
func NewEvaluator(sources SourceTable, log logger.Logger) *Evaluator {
	if log == nil {
		log = logger.NewNop()
	}
	return &Evaluator{Sources: sources, Log: log}
}

func (ev *Evaluator) log() logger.Logger {
	if ev.Log == nil {
		return logger.NewNop()
	}
	return ev.Log
}

// Evaluate returns the entities of ctx that pass tree, in sort-key order.
// Source problems yield an empty result rather than an error.
func (ev *Evaluator) Evaluate(tree *Tree, ctx Context) []Entity {
	start := time.Now()
	base, err := ev.source(tree.Base, ctx)
	if err != nil {
		ev.log().Debug("evaluation produced no base collection",
			logger.String("tree", tree.Name),
			logger.String("base", string(tree.Base)),
			logger.Error(err))
		return []Entity{}
	}

	result := ev.exclude(base, ctx)
	for _, n := range tree.Children {
		var failures int
		result, failures = n.apply(result, ev.log())
		if failures > 0 && ev.Metrics != nil {
			ev.Metrics.PredicateFailures(n.KindID(), failures)
		}
	}

	SortEntities(result)
	if ev.Metrics != nil {
		ev.Metrics.ObserveEvaluation(tree.Base, len(result), time.Since(start))
	}
	return result
}

// EvaluateContexts evaluates tree against each context in turn and
// concatenates the results. The first context is the current one; trees that
// only make sense there skip the others.
func (ev *Evaluator) EvaluateContexts(tree *Tree, ctxs ...Context) []Entity {
	if len(ctxs) == 0 {
		ev.log().Debug("evaluation produced no base collection",
			logger.String("tree", tree.Name),
			logger.Error(ErrEmptySourceContext))
		return []Entity{}
	}
	if !tree.AllContexts || tree.CurrentContextOnly() {
		return ev.Evaluate(tree, ctxs[0])
	}
	var out []Entity
	for _, ctx := range ctxs {
		out = append(out, ev.Evaluate(tree, ctx)...)
	}
	if out == nil {
		out = []Entity{}
	}
	return out
}

func (ev *Evaluator) source(base BaseKind, ctx Context) ([]Entity, error) {
	if ctx == nil {
		return nil, ErrEmptySourceContext
	}
	src, ok := ev.Sources[base]
	if !ok || src == nil {
		return nil, fmt.Errorf("no source for base collection %q", base)
	}
	es, err := src(ctx)
	if err != nil {
		return nil, fmt.Errorf("source %q in context %s: %w", base, ctx.Key(), err)
	}
	return es, nil
}

// exclude drops contained entities and, outside god mode, unperceivable ones.
// The input slice is never modified.
func (ev *Evaluator) exclude(es []Entity, ctx Context) []Entity {
	out := make([]Entity, 0, len(es))
	for _, e := range es {
		if e.Contained() {
			continue
		}
		if !ev.GodMode && !ctx.Perceivable(e) {
			continue
		}
		out = append(out, e)
	}
	return out
}

// SortEntities orders es by kind, variant, linearized position and finally id,
// so equal inputs always produce identical output.
func SortEntities(es []Entity) {
	slices.SortStableFunc(es, func(a, b Entity) int {
		return cmp.Or(
			cmp.Compare(a.KindID(), b.KindID()),
			cmp.Compare(a.VariantID(), b.VariantID()),
			cmp.Compare(a.Position().linear(), b.Position().linear()),
			cmp.Compare(a.ID(), b.ID()),
		)
	})
}
