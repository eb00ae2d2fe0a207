// Package lifecycle implements runUpdateLifecycle, the seven-step
// sequence every reference create/update/delete/set routes through:
// coercion, transaction acquisition, the onChange hook, relation
// propagation, and the final merged write. Every write funnels through
// one coerce-then-write sequence, driven by the schema-derived pipeline
// this package threads through coerce, relation and txn.
package lifecycle

import (
	"context"
	"sort"
	"time"

	"eve.evalgo.org/docstore"
	"eve.evalgo.org/docstore/coerce"
	"eve.evalgo.org/docstore/collection"
	"eve.evalgo.org/docstore/model"
	"eve.evalgo.org/docstore/relation"
	"eve.evalgo.org/docstore/txn"
)

// Deps bundles the three collection lookups the lifecycle, coercion and
// relation layers each need their own narrow view of. *collection.Binder
// satisfies this directly.
type Deps interface {
	// Resolve backs coerce.CollectionResolver for reference coercion.
	Resolve(modelName, plugin string) (docstore.CollectionRef, error)
	// ResolveBound backs relation.Resolver for relation query/write.
	ResolveBound(modelName, plugin string) (collection.Bound, error)
	// Get backs txn.Collections for the runner's write dispatch.
	Get(name string) (collection.Bound, bool)
}

// Run executes runUpdateLifecycle for one reference write. tx is the
// caller-provided transaction, or nil to open a fresh read-write
// transaction via runner. data is nil for a delete. Returns the coerced
// newData (nil for delete).
func Run(ctx context.Context, dctx *docstore.Context, runner *txn.Runner, deps Deps, ref docstore.Ref, data map[string]interface{}, editMode docstore.EditMode, opts docstore.WriteOpts, timestamp time.Time, tx docstore.Transaction) (map[string]interface{}, error) {
	m, err := dctx.Registry.GetModel(ref.Parent().Name(), "")
	if err != nil {
		return nil, err
	}

	var newData map[string]interface{}
	if data != nil {
		newData, err = coerce.CoerceDocument(dctx, m, ref.ID(), "", data, coerce.Options{
			EditMode:          editMode,
			Timestamp:         timestamp,
			ResolveCollection: deps.Resolve,
		})
		if err != nil {
			return nil, err
		}
	}

	updateRelations := opts.ResolvedUpdateRelations()
	runOnChangeHook := opts.ResolvedRunOnChangeHook()
	refAliases := referenceAliases(m)

	write := func(ctx context.Context, tx docstore.Transaction) error {
		if !updateRelations && !runOnChangeHook {
			return tx.MergeWriteInternal(ref, newData, editMode)
		}

		prevData := map[string]interface{}{}
		if editMode == docstore.EditModeUpdate || editMode == docstore.EditModeDelete {
			prevSnap, err := tx.GetAtomic(ctx, ref, docstore.GetOpts{})
			if err != nil {
				return err
			}
			if prevSnap.Exists() {
				prevData = prevSnap.Data()
			}
		}

		if editMode == docstore.EditModeUpdate && runOnChangeHook && m.Options.OnChange != nil {
			hook, err := m.Options.OnChange(prevData, newData, tx, ref)
			if err != nil {
				return err
			}
			if hook != nil {
				tx.AddSuccessHook(hook)
			}
		}

		if updateRelations {
			nd := newData
			if nd == nil {
				nd = map[string]interface{}{}
			}
			for _, alias := range refAliases {
				handler, err := relation.NewRelationHandler(dctx, m, alias)
				if err != nil {
					return err
				}
				if err := handler.Update(ctx, dctx, ref, prevData, nd, editMode, tx, deps); err != nil {
					return err
				}
			}
			if editMode != docstore.EditModeDelete {
				newData = nd
			}
		}

		return tx.MergeWriteInternal(ref, newData, editMode)
	}

	if tx != nil {
		if err := write(ctx, tx); err != nil {
			return nil, err
		}
		return newData, nil
	}

	if err := runner.Run(ctx, txn.RunOptions{Participants: []string{m.Name}}, write); err != nil {
		return nil, err
	}
	return newData, nil
}

// referenceAliases returns m's reference-attribute aliases in a stable
// order, so relation propagation runs deterministically.
func referenceAliases(m *model.Model) []string {
	aliases := make([]string, 0, len(m.Attributes))
	for alias, attr := range m.Attributes {
		if attr.Kind() == model.KindReference {
			aliases = append(aliases, alias)
		}
	}
	sort.Strings(aliases)
	return aliases
}
