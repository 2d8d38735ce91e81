package graphom

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/graphom/graphom/criteria"
	"github.com/graphom/graphom/event"
	"github.com/graphom/graphom/metadata"
	"github.com/graphom/graphom/store"
)

// Repository is the typed access point for one mapped class. Identity-based
// lookups and saves go through the session's identity map: a node that is
// already managed is returned as the managed instance, and the in-memory
// state of a managed instance wins over whatever the store row carried.
// Criteria and raw-query lookups always hydrate fresh instances.
type Repository[T any] struct {
	session *Session
	md      *metadata.Metadata
	logger  *logrus.Entry
}

// NewRepository registers T with the session and returns its repository.
// T must be a mappable struct with an identity field.
func NewRepository[T any](s *Session) (*Repository[T], error) {
	var prototype T
	md, err := s.registry.Register(&prototype)
	if err != nil {
		return nil, err
	}
	if !md.HasIdentity() {
		return nil, fmt.Errorf("%s has no identity field, cannot be managed", md.Label)
	}
	return &Repository[T]{
		session: s,
		md:      md,
		logger:  s.logger.WithField("label", md.Label),
	}, nil
}

// Metadata returns the class descriptor backing this repository.
func (r *Repository[T]) Metadata() *metadata.Metadata { return r.md }

// FindOption adjusts ordering and pagination of a multi-result lookup.
type FindOption func(*findOptions)

type findOptions struct {
	orderBy []criteria.Order
	limit   int
	offset  int
}

// WithOrderBy adds an ordering term. Terms accumulate in call order.
func WithOrderBy(field string, direction criteria.Direction) FindOption {
	return func(o *findOptions) {
		o.orderBy = append(o.orderBy, criteria.Order{Field: field, Direction: direction})
	}
}

// WithLimit caps the number of returned nodes.
func WithLimit(limit int) FindOption {
	return func(o *findOptions) { o.limit = limit }
}

// WithOffset skips the first offset matches.
func WithOffset(offset int) FindOption {
	return func(o *findOptions) { o.offset = offset }
}

func applyOptions(opts []FindOption) findOptions {
	var o findOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Find returns the node with the given identity, or nil when no such node
// exists. A managed instance is returned without touching the store.
func (r *Repository[T]) Find(ctx context.Context, id int64) (*T, error) {
	if cached, ok := r.session.cache.Get(r.md.Label, id); ok {
		if entity, ok := cached.(*T); ok {
			return entity, nil
		}
	}

	stmt, err := r.session.builder.SearchQuery(r.md, criteria.ByID(id))
	if err != nil {
		return nil, err
	}
	result, err := r.session.client.Run(ctx, stmt)
	if err != nil {
		return nil, fmt.Errorf("failed to find %s %d: %w", r.md.Label, id, err)
	}
	if result.Len() == 0 {
		return nil, nil
	}
	entity, err := r.hydrateRow(result.Rows[0])
	if err != nil {
		return nil, err
	}
	r.session.cache.Put(r.md.Label, id, entity)
	return entity, nil
}

// FindAll returns every node of the class. The slice is empty, never nil,
// when the class has no nodes.
func (r *Repository[T]) FindAll(ctx context.Context, opts ...FindOption) ([]*T, error) {
	return r.FindBy(ctx, nil, opts...)
}

// FindBy returns the nodes matching every filter. Filters are equality
// predicates on mapped properties, joined with AND; the pseudo-field
// criteria.ID matches on the store identity.
func (r *Repository[T]) FindBy(ctx context.Context, filters map[string]interface{}, opts ...FindOption) ([]*T, error) {
	o := applyOptions(opts)
	c := criteria.New(filters)
	c.OrderBy = o.orderBy
	c.Limit = o.limit
	c.Offset = o.offset

	stmt, err := r.session.builder.SearchQuery(r.md, c)
	if err != nil {
		return nil, err
	}
	return r.search(ctx, stmt)
}

// FindOneBy returns the single node matching every filter, nil when none
// does, and ErrNonUniqueResult when more than one does.
func (r *Repository[T]) FindOneBy(ctx context.Context, filters map[string]interface{}) (*T, error) {
	stmt, err := r.session.builder.SearchQuery(r.md, criteria.New(filters))
	if err != nil {
		return nil, err
	}
	return r.searchOne(ctx, stmt)
}

// FindByQuery returns the nodes matched by a raw query fragment. The
// fragment must bind the class's node identifier; result and pagination
// clauses are appended by the builder.
func (r *Repository[T]) FindByQuery(ctx context.Context, fragment string, params map[string]interface{}, opts ...FindOption) ([]*T, error) {
	o := applyOptions(opts)
	stmt, err := r.session.builder.CustomSearchQuery(r.md, fragment, params, o.orderBy, o.limit, o.offset)
	if err != nil {
		return nil, err
	}
	return r.search(ctx, stmt)
}

// FindOneByQuery returns the single node matched by a raw query fragment,
// nil when none is, and ErrNonUniqueResult when more than one is.
func (r *Repository[T]) FindOneByQuery(ctx context.Context, fragment string, params map[string]interface{}) (*T, error) {
	stmt, err := r.session.builder.CustomSearchQuery(r.md, fragment, params, nil, 0, 0)
	if err != nil {
		return nil, err
	}
	return r.searchOne(ctx, stmt)
}

// Save persists the entity: a create when it has no identity yet, an update
// of the existing node otherwise. Returns the number of persisted nodes,
// which is 0 when the class maps no properties.
func (r *Repository[T]) Save(ctx context.Context, entity *T) (int64, error) {
	if _, ok := r.md.IDValue(entity); ok {
		return r.update(ctx, entity)
	}
	return r.create(ctx, entity)
}

func (r *Repository[T]) create(ctx context.Context, entity *T) (int64, error) {
	stmt, err := r.session.builder.CreateQuery(r.md, entity)
	if err != nil {
		return 0, err
	}
	if stmt == nil {
		r.logger.Debug("nothing to persist")
		return 0, nil
	}

	result, err := r.session.client.Run(ctx, stmt)
	if err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", r.md.Label, err)
	}
	if result.Len() != 1 {
		return 0, fmt.Errorf("create of %s returned %d rows, want 1: %w", r.md.Label, result.Len(), ErrBadResultShape)
	}
	id, ok := result.Rows[0].Int(r.md.IDColumn())
	if !ok {
		return 0, fmt.Errorf("create of %s returned no %s column: %w", r.md.Label, r.md.IDColumn(), ErrBadResultShape)
	}

	if err := r.md.SetIDValue(entity, id); err != nil {
		return 0, err
	}
	r.session.cache.Put(r.md.Label, id, entity)
	r.session.events.Dispatch(ctx, event.New(event.NodeCreated, r.md.Label, id, entity))
	r.logger.WithField("node", id).Debug("node created")
	return 1, nil
}

func (r *Repository[T]) update(ctx context.Context, entity *T) (int64, error) {
	stmt, err := r.session.builder.UpdateQuery(r.md, entity)
	if err != nil {
		return 0, err
	}
	if stmt == nil {
		r.logger.Debug("nothing to persist")
		return 0, nil
	}

	result, err := r.session.client.Run(ctx, stmt)
	if err != nil {
		return 0, fmt.Errorf("failed to update %s: %w", r.md.Label, err)
	}

	id, _ := r.md.IDValue(entity)
	r.session.events.Dispatch(ctx, event.New(event.NodeUpdated, r.md.Label, id, entity))
	r.session.cache.Put(r.md.Label, id, entity)
	r.logger.WithField("node", id).Debug("node updated")
	return int64(result.Len()), nil
}

// Delete removes the entity's node and all its relationships. An entity
// that was never persisted is a no-op. Returns the store's deleted-records
// counter; a counter the store did not report parses as 0.
func (r *Repository[T]) Delete(ctx context.Context, entity *T) (int64, error) {
	id, ok := r.md.IDValue(entity)
	if !ok {
		return 0, nil
	}

	// Evict before the store runs: even a failed delete must not leave a
	// possibly-gone node managed.
	r.session.cache.Remove(r.md.Label, id)

	stmt, err := r.session.builder.DetachDeleteQuery(r.md, id)
	if err != nil {
		return 0, err
	}
	result, err := r.session.client.Run(ctx, stmt)
	if err != nil {
		return 0, fmt.Errorf("failed to delete %s %d: %w", r.md.Label, id, err)
	}

	var deleted int64
	if row, ok := result.First(); ok {
		if n, ok := row.Int(r.md.DeletedColumn()); ok {
			deleted = n
		} else {
			r.logger.WithField("node", id).Warn("delete counter missing from result, reporting 0")
		}
	} else {
		r.logger.WithField("node", id).Warn("delete returned no rows, reporting 0")
	}

	if deleted > 0 {
		r.session.events.Dispatch(ctx, event.New(event.NodeDeleted, r.md.Label, id, nil))
		r.logger.WithField("node", id).Debug("node deleted")
	}
	return deleted, nil
}

// Reload rehydrates the entity in place from the store, bypassing the
// identity map. An entity that was never persisted is a no-op; a persisted
// node must still exist.
func (r *Repository[T]) Reload(ctx context.Context, entity *T) error {
	return r.reload(ctx, entity, false)
}

// Refresh is Reload plus a NodeUpdated event, for callers that treat a
// store-side change as an update of the managed instance.
func (r *Repository[T]) Refresh(ctx context.Context, entity *T) error {
	return r.reload(ctx, entity, true)
}

func (r *Repository[T]) reload(ctx context.Context, entity *T, notify bool) error {
	id, ok := r.md.IDValue(entity)
	if !ok {
		return nil
	}

	stmt, err := r.session.builder.SearchQuery(r.md, criteria.ByID(id))
	if err != nil {
		return err
	}
	result, err := r.session.client.Run(ctx, stmt)
	if err != nil {
		return fmt.Errorf("failed to reload %s %d: %w", r.md.Label, id, err)
	}
	if result.Len() != 1 {
		return fmt.Errorf("reload of %s %d matched %d nodes, want 1", r.md.Label, id, result.Len())
	}

	bag, ok := result.Rows[0].Bag(r.md.ValueColumn())
	if !ok {
		return fmt.Errorf("reload of %s %d returned no %s column: %w", r.md.Label, id, r.md.ValueColumn(), ErrBadResultShape)
	}
	if err := r.session.hydrator.Populate(r.md, entity, bag); err != nil {
		return err
	}

	if notify {
		r.session.events.Dispatch(ctx, event.New(event.NodeUpdated, r.md.Label, id, entity))
	}
	return nil
}

// Count returns the number of nodes matching every filter. A count the
// store did not report parses as 0.
func (r *Repository[T]) Count(ctx context.Context, filters map[string]interface{}) (int64, error) {
	stmt, err := r.session.builder.CountQuery(r.md, criteria.New(filters))
	if err != nil {
		return 0, err
	}
	result, err := r.session.client.Run(ctx, stmt)
	if err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", r.md.Label, err)
	}

	row, ok := result.First()
	if !ok {
		r.logger.Warn("count returned no rows, reporting 0")
		return 0, nil
	}
	n, ok := row.Int(r.md.CountColumn())
	if !ok {
		r.logger.Warn("count column missing from result, reporting 0")
		return 0, nil
	}
	return n, nil
}

func (r *Repository[T]) search(ctx context.Context, stmt *store.Statement) ([]*T, error) {
	result, err := r.session.client.Run(ctx, stmt)
	if err != nil {
		return nil, fmt.Errorf("failed to search %s: %w", r.md.Label, err)
	}

	entities := make([]*T, 0, result.Len())
	for _, row := range result.Rows {
		entity, err := r.hydrateRow(row)
		if err != nil {
			return nil, err
		}
		entities = append(entities, entity)
	}
	return entities, nil
}

func (r *Repository[T]) searchOne(ctx context.Context, stmt *store.Statement) (*T, error) {
	result, err := r.session.client.Run(ctx, stmt)
	if err != nil {
		return nil, fmt.Errorf("failed to search %s: %w", r.md.Label, err)
	}
	switch result.Len() {
	case 0:
		return nil, nil
	case 1:
		return r.hydrateRow(result.Rows[0])
	default:
		return nil, fmt.Errorf("search of %s matched %d nodes: %w", r.md.Label, result.Len(), ErrNonUniqueResult)
	}
}

// hydrateRow turns one result row into a fresh entity instance. The
// identity map is never consulted or populated here; only identity-based
// find and save manage instances.
func (r *Repository[T]) hydrateRow(row store.Row) (*T, error) {
	bag, ok := row.Bag(r.md.ValueColumn())
	if !ok {
		return nil, fmt.Errorf("row has no %s column: %w", r.md.ValueColumn(), ErrBadResultShape)
	}
	id, ok := row.Int(r.md.IDColumn())
	if !ok {
		return nil, fmt.Errorf("row has no %s column: %w", r.md.IDColumn(), ErrBadResultShape)
	}

	entity := new(T)
	if err := r.session.hydrator.Populate(r.md, entity, bag); err != nil {
		return nil, err
	}
	if err := r.md.SetIDValue(entity, id); err != nil {
		return nil, err
	}
	return entity, nil
}
