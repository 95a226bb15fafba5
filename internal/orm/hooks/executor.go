package hooks

import (
	"context"
	"fmt"
	"reflect"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/conduit-lang/resourcehooks/internal/orm/resource"
)

// Executor fires resource hooks for one logical operation at a time. It walks the graph of
// related resources breadth-first and applies hook-driven filtering back onto it.
//
// An Executor caches hook discovery per type and is not safe for concurrent use; create one
// per request.
type Executor struct {
	graph    *resource.Graph
	helper   *helper
	logger   *zap.Logger
	options  Options
	targeted TargetedFields
}

// NewExecutor creates a new hook executor
func NewExecutor(config *Config) (*Executor, error) {
	if config == nil {
		return nil, fmt.Errorf("executor config cannot be nil")
	}
	if config.Graph == nil {
		return nil, fmt.Errorf("resource graph cannot be nil")
	}
	if config.Factory == nil {
		return nil, fmt.Errorf("container factory cannot be nil")
	}

	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Executor{
		graph:    config.Graph,
		helper:   newHelper(config.Factory, config.Graph, config.Repository, config.Options),
		logger:   logger,
		options:  config.Options,
		targeted: config.TargetedFields,
	}, nil
}

// ExecuteBeforeCreate fires BeforeCreate for the resources about to be created, then the
// relationship hooks of the resources they reference. It returns the resources that may
// proceed.
func ExecuteBeforeCreate[T resource.Identifiable](ctx context.Context, e *Executor, resources []T, pipeline Pipeline) ([]T, error) {
	if !e.options.Enabled {
		return resources, nil
	}
	out, changed, err := e.beforeCreate(ctx, reflect.TypeFor[T](), erase(resources), pipeline)
	if err != nil {
		return nil, err
	}
	return result(resources, out, changed), nil
}

// ExecuteBeforeUpdate fires BeforeUpdate for the resources about to be updated, then the
// relationship hooks of the resources they reference
func ExecuteBeforeUpdate[T resource.Identifiable](ctx context.Context, e *Executor, resources []T, pipeline Pipeline) ([]T, error) {
	if !e.options.Enabled {
		return resources, nil
	}
	out, changed, err := e.beforeUpdate(ctx, reflect.TypeFor[T](), erase(resources), pipeline)
	if err != nil {
		return nil, err
	}
	return result(resources, out, changed), nil
}

// ExecuteBeforeDelete fires BeforeDelete for the resources about to be deleted, then the
// implicit relationship hooks of every resource that references them
func ExecuteBeforeDelete[T resource.Identifiable](ctx context.Context, e *Executor, resources []T, pipeline Pipeline) ([]T, error) {
	if !e.options.Enabled {
		return resources, nil
	}
	out, changed, err := e.beforeDelete(ctx, reflect.TypeFor[T](), erase(resources), pipeline)
	if err != nil {
		return nil, err
	}
	return result(resources, out, changed), nil
}

// ExecuteOnReturn fires OnReturn for the resources about to be returned and every resource
// included with them
func ExecuteOnReturn[T resource.Identifiable](ctx context.Context, e *Executor, resources []T, pipeline Pipeline) ([]T, error) {
	if !e.options.Enabled {
		return resources, nil
	}
	out, changed, err := e.filterAll(ctx, reflect.TypeFor[T](), erase(resources), pipeline, OnReturn)
	if err != nil {
		return nil, err
	}
	return result(resources, out, changed), nil
}

// ExecuteAfterRead fires AfterRead for the resources read and every resource included
// with them
func ExecuteAfterRead[T resource.Identifiable](ctx context.Context, e *Executor, resources []T, pipeline Pipeline) ([]T, error) {
	if !e.options.Enabled {
		return resources, nil
	}
	out, changed, err := e.filterAll(ctx, reflect.TypeFor[T](), erase(resources), pipeline, AfterRead)
	if err != nil {
		return nil, err
	}
	return result(resources, out, changed), nil
}

// ExecuteAfterCreate fires AfterCreate for the created resources and AfterUpdateRelationship
// for the resources they reference
func ExecuteAfterCreate[T resource.Identifiable](ctx context.Context, e *Executor, resources []T, pipeline Pipeline) error {
	if !e.options.Enabled {
		return nil
	}
	return e.afterWrite(ctx, reflect.TypeFor[T](), erase(resources), pipeline, AfterCreate)
}

// ExecuteAfterUpdate fires AfterUpdate for the updated resources and AfterUpdateRelationship
// for the resources they reference
func ExecuteAfterUpdate[T resource.Identifiable](ctx context.Context, e *Executor, resources []T, pipeline Pipeline) error {
	if !e.options.Enabled {
		return nil
	}
	return e.afterWrite(ctx, reflect.TypeFor[T](), erase(resources), pipeline, AfterUpdate)
}

// ExecuteAfterDelete fires AfterDelete for the deleted resources
func ExecuteAfterDelete[T resource.Identifiable](ctx context.Context, e *Executor, resources []T, pipeline Pipeline, succeeded bool) error {
	if !e.options.Enabled {
		return nil
	}
	return e.afterDelete(ctx, reflect.TypeFor[T](), erase(resources), pipeline, succeeded)
}

// ExecuteBeforeRead fires BeforeRead for T and, once per type, for every type along the
// requested include chains. stringID is empty unless a single resource is read.
func ExecuteBeforeRead[T resource.Identifiable](ctx context.Context, e *Executor, pipeline Pipeline, stringID string) error {
	if !e.options.Enabled {
		return nil
	}
	return e.beforeRead(ctx, reflect.TypeFor[T](), pipeline, stringID)
}

// result converts the root result back to the caller's type. The caller's slice is returned
// as is when no hook changed it.
func result[T resource.Identifiable](original []T, out []resource.Identifiable, changed bool) []T {
	if !changed {
		return original
	}
	return typed[T](out)
}

// run is the state of one top-level executor call
type run struct {
	*Executor
	ctx      context.Context
	pipeline Pipeline
	walk     *traversal
	logger   *zap.Logger
}

// start prepares a top-level call. kinds are the hooks relevant below the root.
func (e *Executor) start(ctx context.Context, operation string, pipeline Pipeline, kinds ...Kind) *run {
	e.helper.target(kinds...)
	return &run{
		Executor: e,
		ctx:      ctx,
		pipeline: pipeline,
		walk:     newTraversal(e.graph, e.targeted.Relationships),
		logger: e.logger.With(
			zap.String("operation", operation),
			zap.String("operation_id", uuid.NewString()),
			zap.String("pipeline", pipeline.String()),
		),
	}
}

// fire calls the kind hook of typ if one is implemented
func (r *run) fire(typ reflect.Type, kind Kind, in *invocation, depth int) (outcome, bool, error) {
	c, err := r.helper.container(typ, kind)
	if err != nil || c == nil {
		return outcome{}, false, err
	}

	in.pipeline = r.pipeline
	r.logger.Debug("firing hook",
		zap.String("hook", kind.String()),
		zap.String("resource", r.graph.ResourceName(typ)),
		zap.Int("count", len(in.resources)),
		zap.Int("relationships", len(in.relationships)),
		zap.Int("depth", depth),
	)

	out, err := c.call(r.ctx, kind, in)
	if err != nil {
		return outcome{}, true, err
	}
	return out, true, nil
}

// fireRoot calls a filtering hook on the root node and applies its result
func (r *run) fireRoot(root *rootNode, kind Kind, in *invocation) error {
	out, fired, err := r.fire(root.typ, kind, in, 0)
	if err != nil || !fired {
		return err
	}
	if r.pipeline.singleResult() && len(out.resources) > 1 {
		return &CardinalityError{Hook: kind, Pipeline: r.pipeline, Count: len(out.resources)}
	}
	root.updateUnique(out.resources)
	return nil
}

// nested returns true if traversing below root can fire any of the targeted hooks
func (r *run) nested(root *rootNode) (bool, error) {
	if len(root.unique) == 0 {
		return false, nil
	}
	return r.helper.anyReachableHook(root.typ)
}

// traverse calls action for every node of l that implements kind, then continues with the
// layer below. Nodes are filtered by action before the next layer is built.
func (r *run) traverse(l *layer, kind Kind, depth int, action func(n node, depth int) error) error {
	if !l.anyResources() {
		return nil
	}

	for _, n := range l.nodes {
		c, err := r.helper.container(n.resourceType(), kind)
		if err != nil {
			return err
		}
		if c == nil {
			continue
		}
		if err := action(n, depth); err != nil {
			return err
		}
	}

	return r.traverse(r.walk.createNextLayer(l.nodes), kind, depth+1, action)
}

func (e *Executor) beforeCreate(ctx context.Context, typ reflect.Type, resources []resource.Identifiable, pipeline Pipeline) ([]resource.Identifiable, bool, error) {
	r := e.start(ctx, "before_create", pipeline, BeforeUpdateRelationship, BeforeImplicitUpdateRelationship)
	root := r.walk.createRootNode(typ, resources)

	in := &invocation{resources: root.unique, relationships: root.leftsToNextLayer()}
	if err := r.fireRoot(root, BeforeCreate, in); err != nil {
		return nil, false, err
	}

	if err := r.fireNestedBeforeUpdateHooks(root); err != nil {
		return nil, false, err
	}

	out, changed := root.result()
	return out, changed, nil
}

func (e *Executor) beforeUpdate(ctx context.Context, typ reflect.Type, resources []resource.Identifiable, pipeline Pipeline) ([]resource.Identifiable, bool, error) {
	r := e.start(ctx, "before_update", pipeline, BeforeUpdateRelationship, BeforeImplicitUpdateRelationship)
	root := r.walk.createRootNode(typ, resources)

	in := &invocation{
		resources:     root.unique,
		relationships: root.leftsToNextLayer(),
		attributes:    e.targeted.Attributes,
	}
	if err := r.loadRootDatabaseValues(root, BeforeUpdate, in); err != nil {
		return nil, false, err
	}
	if err := r.fireRoot(root, BeforeUpdate, in); err != nil {
		return nil, false, err
	}

	if err := r.fireNestedBeforeUpdateHooks(root); err != nil {
		return nil, false, err
	}

	out, changed := root.result()
	return out, changed, nil
}

func (e *Executor) beforeDelete(ctx context.Context, typ reflect.Type, resources []resource.Identifiable, pipeline Pipeline) ([]resource.Identifiable, bool, error) {
	r := e.start(ctx, "before_delete", pipeline, BeforeImplicitUpdateRelationship)
	root := r.walk.createRootNode(typ, resources)

	in := &invocation{resources: root.unique, relationships: root.leftsToNextLayer()}
	if err := r.loadRootDatabaseValues(root, BeforeDelete, in); err != nil {
		return nil, false, err
	}
	if in.loaded {
		// The hook inspects the stored state of the resources being deleted
		in.resources = in.databaseValues
	}
	if err := r.fireRoot(root, BeforeDelete, in); err != nil {
		return nil, false, err
	}

	ok, err := r.nested(root)
	if err != nil {
		return nil, false, err
	}
	if ok {
		for _, target := range root.leftsToNextLayerByRelationships() {
			if err := r.fireForAffectedImplicits(target.rightType, target.entries, nil, 1); err != nil {
				return nil, false, err
			}
		}
	}

	out, changed := root.result()
	return out, changed, nil
}

// filterAll fires a filtering hook on the root and on every node below it, removing filtered
// resources from the relationships that referenced them
func (e *Executor) filterAll(ctx context.Context, typ reflect.Type, resources []resource.Identifiable, pipeline Pipeline, kind Kind) ([]resource.Identifiable, bool, error) {
	r := e.start(ctx, kind.String(), pipeline, kind)
	root := r.walk.createRootNode(typ, resources)

	in := &invocation{resources: root.unique}
	if err := r.fireRoot(root, kind, in); err != nil {
		return nil, false, err
	}
	r.walk.markRemoved(typ, resource.Except(in.resources, resource.NewSet(root.unique...)))

	ok, err := r.nested(root)
	if err != nil {
		return nil, false, err
	}
	if ok {
		next := r.walk.createNextLayer([]node{root})
		err := r.traverse(next, kind, 1, func(n node, depth int) error {
			unique := n.uniqueResources()
			if len(unique) == 0 {
				return nil
			}
			out, _, err := r.fire(n.resourceType(), kind, &invocation{resources: unique, isIncluded: true}, depth)
			if err != nil {
				return err
			}
			n.updateUnique(out.resources)
			n.reassign()
			r.walk.markRemoved(n.resourceType(), resource.Except(unique, resource.NewSet(n.uniqueResources()...)))
			return nil
		})
		if err != nil {
			return nil, false, err
		}
	}

	out, changed := root.result()
	return out, changed, nil
}

// afterWrite fires AfterCreate or AfterUpdate on the root, then AfterUpdateRelationship on
// every node below it
func (e *Executor) afterWrite(ctx context.Context, typ reflect.Type, resources []resource.Identifiable, pipeline Pipeline, kind Kind) error {
	r := e.start(ctx, kind.String(), pipeline, AfterUpdateRelationship)
	root := r.walk.createRootNode(typ, resources)

	if _, _, err := r.fire(typ, kind, &invocation{resources: root.unique}, 0); err != nil {
		return err
	}

	ok, err := r.nested(root)
	if err != nil || !ok {
		return err
	}

	next := r.walk.createNextLayer([]node{root})
	return r.traverse(next, AfterUpdateRelationship, 1, func(n node, depth int) error {
		child := n.(*childNode)
		// Relationships without an inverse leave the dictionary empty; the hook still fires
		entries := r.inverseEntries(child.rightsByRelationship())
		_, _, err := r.fire(child.typ, AfterUpdateRelationship, &invocation{relationships: entries}, depth)
		return err
	})
}

func (e *Executor) afterDelete(ctx context.Context, typ reflect.Type, resources []resource.Identifiable, pipeline Pipeline, succeeded bool) error {
	r := e.start(ctx, "after_delete", pipeline)
	root := r.walk.createRootNode(typ, resources)

	_, _, err := r.fire(typ, AfterDelete, &invocation{resources: root.unique, succeeded: succeeded}, 0)
	return err
}

func (e *Executor) beforeRead(ctx context.Context, typ reflect.Type, pipeline Pipeline, stringID string) error {
	r := e.start(ctx, "before_read", pipeline, BeforeRead)

	if _, _, err := r.fire(typ, BeforeRead, &invocation{stringID: stringID}, 0); err != nil {
		return err
	}

	called := map[reflect.Type]bool{typ: true}
	for _, chain := range e.targeted.Includes {
		for depth, rel := range chain {
			if called[rel.RightType] {
				continue
			}
			called[rel.RightType] = true
			if _, _, err := r.fire(rel.RightType, BeforeRead, &invocation{isIncluded: true}, depth+1); err != nil {
				return err
			}
		}
	}
	return nil
}

// loadRootDatabaseValues attaches the stored state of the root resources to in when the
// root implements kind and database values are enabled for it
func (r *run) loadRootDatabaseValues(root *rootNode, kind Kind, in *invocation) error {
	ok, err := r.helper.shouldExecuteHook(root.typ, kind)
	if err != nil || !ok {
		return err
	}
	load, err := r.helper.shouldLoadDatabaseValues(root.typ, kind)
	if err != nil || !load {
		return err
	}

	values, err := r.helper.loadDatabaseValues(r.ctx, root.typ, root.unique, proxyRelationships(root.populated))
	if err != nil {
		return err
	}
	in.databaseValues, in.loaded = values, true
	return nil
}

// fireNestedBeforeUpdateHooks fires the relationship hooks of the layer right below the
// root. Resources referenced by created or updated resources are themselves updated, so
// they get BeforeUpdateRelationship rather than BeforeCreate.
func (r *run) fireNestedBeforeUpdateHooks(root *rootNode) error {
	ok, err := r.nested(root)
	if err != nil || !ok {
		return err
	}

	next := r.walk.createNextLayer([]node{root})
	for _, n := range next.nodes {
		child := n.(*childNode)

		if err := r.fireBeforeUpdateRelationship(child); err != nil {
			return err
		}

		// The previous owners of the dependents lose them. A created resource has no
		// previous relationships, so nothing is implicitly affected by a create.
		if r.pipeline != PipelinePost {
			if err := r.fireForAffectedImplicits(child.typ, child.leftsByRelationship(), child.uniqueResources(), 1); err != nil {
				return err
			}
		}

		// The dependents may leave their previous principals
		var dependents []relationshipEntry
		for _, entry := range child.rightsByRelationship() {
			if len(entry.resources) > 0 {
				dependents = append(dependents, entry)
			}
		}
		if len(dependents) > 0 {
			leftType := dependents[0].relationship.LeftType
			if err := r.fireForAffectedImplicits(leftType, r.inverseEntries(dependents), nil, 1); err != nil {
				return err
			}
		}
	}
	return nil
}

// fireBeforeUpdateRelationship asks the hooks of child which of its resources may have
// their relationships updated, and drops the others from the graph
func (r *run) fireBeforeUpdateRelationship(child *childNode) error {
	unique := child.uniqueResources()
	if len(unique) == 0 {
		return nil
	}
	ok, err := r.helper.shouldExecuteHook(child.typ, BeforeUpdateRelationship)
	if err != nil || !ok {
		return err
	}

	in := &invocation{
		ids:           resource.StringIDs(unique),
		relationships: r.inverseEntries(child.rightsByRelationship()),
	}

	load, err := r.helper.shouldLoadDatabaseValues(child.typ, BeforeUpdateRelationship)
	if err != nil {
		return err
	}
	if load {
		values, err := r.helper.loadDatabaseValues(r.ctx, child.typ, unique, proxyRelationships(child.populated))
		if err != nil {
			return err
		}
		in.databaseValues, in.loaded = values, true
	}

	out, _, err := r.fire(child.typ, BeforeUpdateRelationship, in, 1)
	if err != nil {
		return err
	}

	allowed := make(map[string]bool, len(out.ids))
	for _, id := range out.ids {
		allowed[id] = true
	}
	kept := make([]resource.Identifiable, 0, len(unique))
	for _, res := range unique {
		if allowed[res.GetStringID()] {
			kept = append(kept, res)
		}
	}

	child.updateUnique(kept)
	child.reassign()
	return nil
}

// fireForAffectedImplicits fires BeforeImplicitUpdateRelationship on typ for the resources
// whose stored relationships point at the given lefts. Resources in existing are left out.
func (r *run) fireForAffectedImplicits(typ reflect.Type, leftsByRelationship []relationshipEntry, existing []resource.Identifiable, depth int) error {
	c, err := r.helper.container(typ, BeforeImplicitUpdateRelationship)
	if err != nil || c == nil {
		return err
	}

	affected, err := r.helper.loadImplicitlyAffected(r.ctx, leftsByRelationship, existing)
	if err != nil {
		return err
	}
	if len(affected) == 0 {
		return nil
	}

	entries := r.inverseEntries(affected)
	if len(entries) == 0 {
		return nil
	}

	_, _, err = r.fire(typ, BeforeImplicitUpdateRelationship, &invocation{relationships: entries}, depth)
	return err
}

// inverseEntries re-keys entries by the inverse of their relationship. Entries without an
// inverse are dropped.
func (r *run) inverseEntries(entries []relationshipEntry) []relationshipEntry {
	out := make([]relationshipEntry, 0, len(entries))
	for _, entry := range entries {
		inverse := r.graph.Inverse(entry.relationship)
		if inverse == nil {
			continue
		}
		out = append(out, relationshipEntry{relationship: inverse, resources: entry.resources})
	}
	return out
}

func proxyRelationships(proxies []*RelationshipProxy) []*resource.Relationship {
	rels := make([]*resource.Relationship, 0, len(proxies))
	for _, p := range proxies {
		rels = append(rels, p.Relationship())
	}
	return rels
}
