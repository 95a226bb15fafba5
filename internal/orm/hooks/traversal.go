package hooks

import (
	"reflect"

	"github.com/conduit-lang/resourcehooks/internal/orm/resource"
)

// traversal walks the resource graph breadth-first for one executor operation. Every
// resource is visited at most once per operation, which makes cyclic graphs terminate.
type traversal struct {
	graph   *resource.Graph
	context map[*resource.Relationship]bool

	proxies    map[*resource.Relationship]*RelationshipProxy
	order      []*RelationshipProxy
	registered map[reflect.Type]bool
	processed  map[reflect.Type]*resource.Set
	// removed holds the resources a filtering hook dropped during the current root
	removed map[reflect.Type]*resource.Set
}

func newTraversal(graph *resource.Graph, contextRelationships []*resource.Relationship) *traversal {
	t := &traversal{
		graph:      graph,
		context:    make(map[*resource.Relationship]bool, len(contextRelationships)),
		proxies:    make(map[*resource.Relationship]*RelationshipProxy),
		registered: make(map[reflect.Type]bool),
		processed:  make(map[reflect.Type]*resource.Set),
		removed:    make(map[reflect.Type]*resource.Set),
	}
	for _, rel := range contextRelationships {
		t.context[rel] = true
	}
	return t
}

// createRootNode builds the first layer from the resources passed to the operation
func (t *traversal) createRootNode(typ reflect.Type, resources []resource.Identifiable) *rootNode {
	t.processed = make(map[reflect.Type]*resource.Set)
	t.removed = make(map[reflect.Type]*resource.Set)
	t.registerProxies(typ)

	unique := resource.Except(resource.Unique(resources), t.processedSet(typ))
	t.markProcessed(typ, unique)

	return &rootNode{
		typ:       typ,
		original:  resources,
		unique:    unique,
		populated: t.populatedRelationships(typ, unique),
		all:       t.relationshipsOf(typ),
	}
}

// createNextLayer builds the layer reached from the nodes of the current layer. Resources
// seen earlier in the operation are left out, and resources filtered earlier are removed
// from the relationship values that still hold them.
func (t *traversal) createNextLayer(nodes []node) *layer {
	type extraction struct {
		proxy  *RelationshipProxy
		lefts  *resource.Set
		rights *resource.Set
	}
	var extracted []*extraction
	byProxy := make(map[*RelationshipProxy]*extraction)

	for _, n := range nodes {
		for _, left := range n.uniqueResources() {
			for _, proxy := range n.relationshipsToNextLayer() {
				value := t.stripRemoved(left, proxy)
				if value == nil && !proxy.IsContextRelation() {
					continue
				}
				rights := resource.Except(resource.Unique(value), t.processedSet(proxy.RightType()))
				if len(rights) == 0 && !proxy.IsContextRelation() {
					continue
				}

				e, ok := byProxy[proxy]
				if !ok {
					e = &extraction{proxy: proxy, lefts: resource.NewSet(), rights: resource.NewSet()}
					byProxy[proxy] = e
					extracted = append(extracted, e)
				}
				e.lefts.Add(left)
				for _, r := range rights {
					e.rights.Add(r)
				}
			}
		}
	}

	// Marking happens after extraction so that siblings reaching the same resource through
	// different relationships all see it.
	for _, e := range extracted {
		t.markProcessed(e.proxy.RightType(), e.rights.Items())
	}

	next := &layer{}
	children := make(map[reflect.Type]*childNode)
	for _, e := range extracted {
		typ := e.proxy.RightType()
		child, ok := children[typ]
		if !ok {
			t.registerProxies(typ)
			child = &childNode{typ: typ}
			children[typ] = child
			next.nodes = append(next.nodes, child)
		}
		child.groups = append(child.groups, &relationshipGroup{
			proxy:   e.proxy,
			lefts:   e.lefts.Items(),
			rights:  e.rights.Items(),
			removed: resource.NewSet(),
		})
	}
	for _, child := range children {
		child.populated = t.populatedRelationships(child.typ, child.uniqueResources())
	}

	return next
}

// registerProxies creates the proxies of the includable relationships declared on typ
func (t *traversal) registerProxies(typ reflect.Type) {
	if t.registered[typ] {
		return
	}
	t.registered[typ] = true

	for _, rel := range t.graph.Relationships(typ) {
		if !rel.CanInclude() {
			continue
		}
		rightType := rel.RightType
		if rel.IsThrough() && t.graph.IsRegistered(rel.ThroughType) {
			rightType = rel.ThroughType
		}
		proxy := newRelationshipProxy(rel, rightType, t.context[rel])
		t.proxies[rel] = proxy
		t.order = append(t.order, proxy)
	}
}

// relationshipsOf returns the proxies of every includable relationship declared on typ
func (t *traversal) relationshipsOf(typ reflect.Type) []*RelationshipProxy {
	var out []*RelationshipProxy
	for _, proxy := range t.order {
		if proxy.LeftType() == typ {
			out = append(out, proxy)
		}
	}
	return out
}

// populatedRelationships returns the proxies of typ that are part of the operation or hold
// a value on at least one of resources
func (t *traversal) populatedRelationships(typ reflect.Type, resources []resource.Identifiable) []*RelationshipProxy {
	var out []*RelationshipProxy
	for _, proxy := range t.relationshipsOf(typ) {
		if proxy.IsContextRelation() {
			out = append(out, proxy)
			continue
		}
		for _, r := range resources {
			if proxy.GetValue(r) != nil {
				out = append(out, proxy)
				break
			}
		}
	}
	return out
}

// markRemoved records resources of typ dropped by a filtering hook
func (t *traversal) markRemoved(typ reflect.Type, resources []resource.Identifiable) {
	if len(resources) == 0 {
		return
	}
	set, ok := t.removed[typ]
	if !ok {
		set = resource.NewSet()
		t.removed[typ] = set
	}
	for _, r := range resources {
		set.Add(r)
	}
}

// stripRemoved returns the value of proxy on left after dropping resources that were
// filtered earlier. The principal is updated when anything was dropped.
func (t *traversal) stripRemoved(left resource.Identifiable, proxy *RelationshipProxy) []resource.Identifiable {
	value := proxy.GetValue(left)
	removed, ok := t.removed[proxy.RightType()]
	if !ok || value == nil {
		return value
	}

	kept := resource.Except(value, removed)
	if len(kept) == len(value) {
		return value
	}
	if proxy.IsToOne() {
		proxy.SetValue(left, nil)
		return nil
	}
	proxy.SetValue(left, kept)
	return kept
}

func (t *traversal) processedSet(typ reflect.Type) *resource.Set {
	set, ok := t.processed[typ]
	if !ok {
		set = resource.NewSet()
		t.processed[typ] = set
	}
	return set
}

func (t *traversal) markProcessed(typ reflect.Type, resources []resource.Identifiable) {
	set := t.processedSet(typ)
	for _, r := range resources {
		set.Add(r)
	}
}
