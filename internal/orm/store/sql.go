package store

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/conduit-lang/resourcehooks/internal/orm/resource"
)

// SQLRepository loads stored resources and their relationships from PostgreSQL in batched
// queries: one query for the resources and one per requested relationship.
type SQLRepository struct {
	db     Querier
	graph  *resource.Graph
	logger *zap.Logger
	tables map[reflect.Type]*Table
	mu     sync.RWMutex
}

// NewSQLRepository creates a new SQL repository
func NewSQLRepository(db Querier, graph *resource.Graph, logger *zap.Logger) *SQLRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SQLRepository{
		db:     db,
		graph:  graph,
		logger: logger,
		tables: make(map[reflect.Type]*Table),
	}
}

// Map adds the table mapping of T
func Map[T resource.Identifiable](r *SQLRepository, table *Table) error {
	return r.Map(reflect.TypeFor[T](), table)
}

// Map adds the table mapping of typ. Missing names are derived from the resource graph.
func (r *SQLRepository) Map(typ reflect.Type, table *Table) error {
	if table == nil || table.Decode == nil {
		return fmt.Errorf("table mapping of %s needs a decode function", typ)
	}
	if !r.graph.IsRegistered(typ) {
		return fmt.Errorf("%w: %s", resource.ErrUnregisteredType, typ)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tables[typ]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateMapping, r.graph.ResourceName(typ))
	}

	// The caller's mapping is left untouched
	mapped := &Table{
		Name:      table.Name,
		Decode:    table.Decode,
		Relations: make(map[string]*Relation, len(table.Relations)),
	}
	if mapped.Name == "" {
		mapped.Name = columnName(r.graph.ResourceName(typ))
	}
	for name, relation := range table.Relations {
		if relation == nil {
			return fmt.Errorf("%w: %s has no relation for %q", ErrInvalidRelationType, mapped.Name, name)
		}
		rel, err := r.graph.Relationship(typ, name)
		if err != nil {
			return err
		}
		if !relation.Type.accepts(rel.Kind) {
			return fmt.Errorf("%w: %s cannot store %s relationship %s", ErrInvalidRelationType, relation.Type, rel.Kind, rel)
		}
		stored := *relation
		applyRelationDefaults(rel, &stored)
		mapped.Relations[name] = &stored
	}

	r.tables[typ] = mapped
	return nil
}

// applyRelationDefaults fills in the conventional column names
func applyRelationDefaults(rel *resource.Relationship, relation *Relation) {
	owner := columnName(typeName(rel.LeftType))
	switch relation.Type {
	case BelongsTo:
		if relation.ForeignKey == "" {
			relation.ForeignKey = columnName(rel.Field) + "_id"
		}
	case HasOne, HasMany:
		if relation.ForeignKey == "" {
			relation.ForeignKey = owner + "_id"
		}
	case HasManyThrough:
		related := columnName(typeName(rel.RightType))
		if relation.ForeignKey == "" {
			relation.ForeignKey = owner + "_id"
		}
		if relation.AssociationKey == "" {
			relation.AssociationKey = related + "_id"
		}
		if relation.JoinTable == "" {
			relation.JoinTable = owner + "_" + related + "s"
		}
	}
}

func (r *SQLRepository) table(typ reflect.Type) (*Table, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tables[typ]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnmappedType, r.graph.ResourceName(typ))
	}
	return t, nil
}

// LoadWithRelationships returns the stored resources of typ with the given ids and the
// listed relationships populated. Ids without a stored row are skipped.
func (r *SQLRepository) LoadWithRelationships(
	ctx context.Context,
	typ reflect.Type,
	ids []string,
	relationships []*resource.Relationship,
) ([]resource.Identifiable, error) {
	t, err := r.table(typ)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []resource.Identifiable{}, nil
	}

	r.logger.Debug("loading stored resources",
		zap.String("table", t.Name),
		zap.Int("ids", len(ids)),
		zap.Int("relationships", len(relationships)),
	)

	query := fmt.Sprintf("SELECT * FROM %s WHERE id = ANY($1)", pq.QuoteIdentifier(t.Name))
	records, err := r.query(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", t.Name, err)
	}

	owners, err := decodeAll(t, records)
	if err != nil {
		return nil, err
	}

	for _, rel := range relationships {
		if err := r.loadRelationship(ctx, t, rel, owners, records); err != nil {
			return nil, fmt.Errorf("failed to load relationship %s: %w", rel, err)
		}
	}

	return owners, nil
}

// loadRelationship loads a single relationship onto owners
func (r *SQLRepository) loadRelationship(
	ctx context.Context,
	t *Table,
	rel *resource.Relationship,
	owners []resource.Identifiable,
	records []Record,
) error {
	relation, ok := t.Relations[rel.Name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnmappedRelationship, rel)
	}
	if len(owners) == 0 {
		return nil
	}

	target, err := r.table(rel.RightType)
	if err != nil {
		return err
	}

	switch relation.Type {
	case BelongsTo:
		return r.loadBelongsTo(ctx, rel, relation, target, owners, records)
	case HasOne, HasMany:
		return r.loadHasMany(ctx, rel, relation, target, owners)
	case HasManyThrough:
		return r.loadHasManyThrough(ctx, rel, relation, target, owners)
	default:
		return fmt.Errorf("%w: %s", ErrInvalidRelationType, relation.Type)
	}
}

// loadBelongsTo loads to-one relationships whose foreign key is on the owner
// Example: Order belongs_to Customer
//   - Collect all unique customer_ids from orders
//   - Single query: SELECT * FROM customers WHERE id = ANY($1)
//   - Map customers back to orders
func (r *SQLRepository) loadBelongsTo(
	ctx context.Context,
	rel *resource.Relationship,
	relation *Relation,
	target *Table,
	owners []resource.Identifiable,
	records []Record,
) error {
	fk := relation.ForeignKey

	var ids []string
	seen := make(map[string]bool)
	for _, record := range records {
		id, ok := record[fk]
		if !ok || id == nil {
			continue
		}
		idStr, err := keyString(id)
		if err != nil {
			return fmt.Errorf("foreign key %s: %w", fk, err)
		}
		if !seen[idStr] {
			seen[idStr] = true
			ids = append(ids, idStr)
		}
	}

	related := make(map[string]resource.Identifiable, len(ids))
	if len(ids) > 0 {
		query := fmt.Sprintf("SELECT * FROM %s WHERE id = ANY($1)", pq.QuoteIdentifier(target.Name))
		results, err := r.query(ctx, query, pq.Array(ids))
		if err != nil {
			return fmt.Errorf("failed to query belongs_to relationship: %w", err)
		}
		decoded, err := decodeAll(target, results)
		if err != nil {
			return err
		}
		for _, res := range decoded {
			related[res.GetStringID()] = res
		}
	}

	for i, owner := range owners {
		var value []resource.Identifiable
		if id := records[i][fk]; id != nil {
			idStr, err := keyString(id)
			if err != nil {
				return fmt.Errorf("foreign key %s: %w", fk, err)
			}
			if res, ok := related[idStr]; ok {
				value = []resource.Identifiable{res}
			}
		}
		rel.SetValue(owner, value)
	}

	return nil
}

// loadHasMany loads relationships whose foreign key is on the related table
// Example: Order has_many LineItem
//   - Single query: SELECT * FROM line_items WHERE order_id = ANY($1)
//   - Group line items by order_id
//   - Attach to orders; to-many values are never nil
func (r *SQLRepository) loadHasMany(
	ctx context.Context,
	rel *resource.Relationship,
	relation *Relation,
	target *Table,
	owners []resource.Identifiable,
) error {
	fk := relation.ForeignKey

	query := fmt.Sprintf("SELECT * FROM %s WHERE %s = ANY($1)", pq.QuoteIdentifier(target.Name), pq.QuoteIdentifier(fk))
	if relation.OrderBy != "" {
		query += fmt.Sprintf(" ORDER BY %s", orderByClause(relation.OrderBy))
	}

	results, err := r.query(ctx, query, pq.Array(resource.StringIDs(owners)))
	if err != nil {
		return fmt.Errorf("failed to query %s relationship: %w", relation.Type, err)
	}

	grouped := make(map[string][]resource.Identifiable)
	for _, record := range results {
		parentID, err := keyString(record[fk])
		if err != nil {
			return fmt.Errorf("%s.%s: %w", target.Name, fk, err)
		}
		res, err := target.Decode(record)
		if err != nil {
			return fmt.Errorf("failed to decode %s row: %w", target.Name, err)
		}
		grouped[parentID] = append(grouped[parentID], res)
	}

	for _, owner := range owners {
		children, ok := grouped[owner.GetStringID()]
		if !ok && !rel.IsToOne() {
			children = []resource.Identifiable{}
		}
		rel.SetValue(owner, children)
	}

	return nil
}

// loadHasManyThrough loads many-to-many relationships through their join table
// Example: Order has_many Tag through order_tags
//   - Single query joining tags with order_tags on tag_id
//   - Group tags by order_id
//   - Rebuild the join rows of every order
func (r *SQLRepository) loadHasManyThrough(
	ctx context.Context,
	rel *resource.Relationship,
	relation *Relation,
	target *Table,
	owners []resource.Identifiable,
) error {
	query := fmt.Sprintf(`
		SELECT t.*, j.%s AS __parent_id
		FROM %s t
		INNER JOIN %s j ON t.id = j.%s
		WHERE j.%s = ANY($1)
	`,
		pq.QuoteIdentifier(relation.ForeignKey),
		pq.QuoteIdentifier(target.Name),
		pq.QuoteIdentifier(relation.JoinTable),
		pq.QuoteIdentifier(relation.AssociationKey),
		pq.QuoteIdentifier(relation.ForeignKey),
	)
	if relation.OrderBy != "" {
		query += fmt.Sprintf(" ORDER BY %s", orderByClause(relation.OrderBy))
	}

	results, err := r.query(ctx, query, pq.Array(resource.StringIDs(owners)))
	if err != nil {
		return fmt.Errorf("failed to query has_many_through relationship: %w", err)
	}

	grouped := make(map[string][]resource.Identifiable)
	for _, record := range results {
		parentID, err := keyString(record["__parent_id"])
		if err != nil {
			return fmt.Errorf("%s.%s: %w", relation.JoinTable, relation.ForeignKey, err)
		}
		delete(record, "__parent_id")

		res, err := target.Decode(record)
		if err != nil {
			return fmt.Errorf("failed to decode %s row: %w", target.Name, err)
		}
		grouped[parentID] = append(grouped[parentID], res)
	}

	for _, owner := range owners {
		rel.Link(owner, grouped[owner.GetStringID()])
	}

	return nil
}

// query runs query and scans all rows before returning
func (r *SQLRepository) query(ctx context.Context, query string, args ...interface{}) ([]Record, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return readRecords(rows)
}

func decodeAll(t *Table, records []Record) ([]resource.Identifiable, error) {
	out := make([]resource.Identifiable, 0, len(records))
	for _, record := range records {
		res, err := t.Decode(record)
		if err != nil {
			return nil, fmt.Errorf("failed to decode %s row: %w", t.Name, err)
		}
		out = append(out, res)
	}
	return out, nil
}

func typeName(t reflect.Type) string {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Name()
}
