package hooks

import (
	"reflect"

	"github.com/conduit-lang/resourcehooks/internal/orm/resource"
)

// node groups the distinct resources of one type found at one traversal depth
type node interface {
	resourceType() reflect.Type
	uniqueResources() []resource.Identifiable
	relationshipsToNextLayer() []*RelationshipProxy
	relationshipsFromPreviousLayer() []*relationshipGroup
	// updateUnique narrows the node to the resources a hook returned
	updateUnique(updated []resource.Identifiable)
	// reassign removes filtered resources from the relationships of the previous layer
	reassign()
}

// relationshipGroup links the principals of the previous layer to the dependents in the
// current node through one relationship
type relationshipGroup struct {
	proxy   *RelationshipProxy
	lefts   []resource.Identifiable
	rights  []resource.Identifiable
	removed *resource.Set
}

// rootNode holds the resources the operation started with
type rootNode struct {
	typ       reflect.Type
	original  []resource.Identifiable
	unique    []resource.Identifiable
	updated   bool
	populated []*RelationshipProxy
	all       []*RelationshipProxy
}

func (n *rootNode) resourceType() reflect.Type { return n.typ }

func (n *rootNode) uniqueResources() []resource.Identifiable { return n.unique }

func (n *rootNode) relationshipsToNextLayer() []*RelationshipProxy { return n.populated }

func (n *rootNode) relationshipsFromPreviousLayer() []*relationshipGroup { return nil }

// updateUnique replaces the root resources with the hook result, restricted to resources
// that were part of the root. The previous order is kept.
func (n *rootNode) updateUnique(updated []resource.Identifiable) {
	n.unique = resource.Intersect(n.unique, resource.NewSet(updated...))
	n.updated = true
}

// reassign is a no-op: the root has no previous layer. The caller's slice is synchronized
// through result.
func (n *rootNode) reassign() {}

// result returns the caller's resources as left by the hooks, in caller order
func (n *rootNode) result() ([]resource.Identifiable, bool) {
	if !n.updated {
		return n.original, false
	}
	return resource.Intersect(n.original, resource.NewSet(n.unique...)), true
}

// leftsToNextLayer maps each populated relationship to the root resources that have it set
func (n *rootNode) leftsToNextLayer() []relationshipEntry {
	entries := make([]relationshipEntry, 0, len(n.populated))
	for _, proxy := range n.populated {
		var lefts []resource.Identifiable
		for _, r := range n.unique {
			if proxy.IsContextRelation() || proxy.GetValue(r) != nil {
				lefts = append(lefts, r)
			}
		}
		entries = append(entries, relationshipEntry{relationship: proxy.Relationship(), resources: lefts})
	}
	return entries
}

// implicitTarget is one right type with the relationships of the root that point at it
type implicitTarget struct {
	rightType reflect.Type
	entries   []relationshipEntry
}

// leftsToNextLayerByRelationships groups every outgoing relationship of the root type by its
// right type and maps it to all root resources
func (n *rootNode) leftsToNextLayerByRelationships() []implicitTarget {
	var targets []implicitTarget
	index := make(map[reflect.Type]int)
	for _, proxy := range n.all {
		entry := relationshipEntry{relationship: proxy.Relationship(), resources: n.unique}
		i, ok := index[proxy.RightType()]
		if !ok {
			index[proxy.RightType()] = len(targets)
			targets = append(targets, implicitTarget{rightType: proxy.RightType(), entries: []relationshipEntry{entry}})
			continue
		}
		targets[i].entries = append(targets[i].entries, entry)
	}
	return targets
}

// childNode holds resources reached from the previous layer
type childNode struct {
	typ       reflect.Type
	populated []*RelationshipProxy
	groups    []*relationshipGroup
}

func (n *childNode) resourceType() reflect.Type { return n.typ }

func (n *childNode) relationshipsToNextLayer() []*RelationshipProxy { return n.populated }

func (n *childNode) relationshipsFromPreviousLayer() []*relationshipGroup { return n.groups }

// uniqueResources is the union of the dependents of all inbound groups
func (n *childNode) uniqueResources() []resource.Identifiable {
	set := resource.NewSet()
	for _, g := range n.groups {
		for _, r := range g.rights {
			set.Add(r)
		}
	}
	return set.Items()
}

func (n *childNode) updateUnique(updated []resource.Identifiable) {
	keep := resource.NewSet(updated...)
	for _, g := range n.groups {
		for _, r := range resource.Except(g.rights, keep) {
			g.removed.Add(r)
		}
		g.rights = resource.Intersect(g.rights, keep)
	}
}

// reassign drops the removed dependents from the relationship values of the principals.
// To-one values pointing at a removed resource become nil.
func (n *childNode) reassign() {
	for _, g := range n.groups {
		if g.removed.Len() == 0 {
			continue
		}
		for _, left := range g.lefts {
			current := g.proxy.GetValue(left)
			if current == nil {
				continue
			}
			if g.proxy.IsToOne() {
				if g.removed.Contains(current[0]) {
					g.proxy.SetValue(left, nil)
				}
				continue
			}
			kept := resource.Except(current, g.removed)
			if len(kept) != len(current) {
				g.proxy.SetValue(left, kept)
			}
		}
	}
}

// rightsByRelationship maps each inbound relationship to the dependents reached through it
func (n *childNode) rightsByRelationship() []relationshipEntry {
	entries := make([]relationshipEntry, 0, len(n.groups))
	for _, g := range n.groups {
		entries = append(entries, relationshipEntry{relationship: g.proxy.Relationship(), resources: g.rights})
	}
	return entries
}

// leftsByRelationship maps each inbound relationship to the principals that reference
// this node
func (n *childNode) leftsByRelationship() []relationshipEntry {
	entries := make([]relationshipEntry, 0, len(n.groups))
	for _, g := range n.groups {
		if len(g.lefts) == 0 {
			continue
		}
		entries = append(entries, relationshipEntry{relationship: g.proxy.Relationship(), resources: g.lefts})
	}
	return entries
}

// layer is one breadth-first depth of the traversal
type layer struct {
	nodes []node
}

// anyResources returns true if any node holds at least one resource
func (l *layer) anyResources() bool {
	for _, n := range l.nodes {
		if len(n.uniqueResources()) > 0 {
			return true
		}
	}
	return false
}
