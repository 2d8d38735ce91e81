// Package cypher renders search, persistence and maintenance statements for
// Cypher-speaking graph stores from class metadata and criteria. The
// generated result columns follow the mapper's row convention: the node bag
// under <identifier>_value, assigned identities under <identifier>_id,
// counts under <identifier>_count and delete counters under
// <identifier>_deleted.
//
// Criteria parameters are numbered positionally ($p0, $p1, ...) in clause
// order so identical criteria always render identical statement text, which
// keeps the store's query-plan cache warm.
package cypher

import (
	"fmt"
	"strings"

	"github.com/graphom/graphom/criteria"
	"github.com/graphom/graphom/metadata"
	"github.com/graphom/graphom/store"
)

// Dehydrator extracts an entity's mapped properties for persistence
// statements. Satisfied by hydrate.Mapper.
type Dehydrator interface {
	Dehydrate(md *metadata.Metadata, entity interface{}) (map[string]interface{}, error)
}

// Builder generates Cypher statements for one store dialect.
type Builder struct {
	dehydrator Dehydrator
}

// NewBuilder creates a Builder using the given dehydrator for persistence
// statements.
func NewBuilder(d Dehydrator) *Builder {
	return &Builder{dehydrator: d}
}

// SearchQuery renders a criteria lookup returning matched nodes as value
// bags.
func (b *Builder) SearchQuery(md *metadata.Metadata, c *criteria.Criteria) (*store.Statement, error) {
	var sb strings.Builder
	params := map[string]interface{}{}

	fmt.Fprintf(&sb, "MATCH (%s:%s)", md.NodeIdentifier, md.Label)
	writeWhere(&sb, md, c, params)
	writeSearchReturn(&sb, md)
	writeOrderAndPage(&sb, md, c.OrderBy, c.Limit, c.Offset)

	return &store.Statement{Text: sb.String(), Params: params}, nil
}

// CustomSearchQuery completes a caller-supplied Cypher fragment with the
// return, ordering and pagination clauses of the search convention. The
// fragment must bind the class's node identifier and may use any predicate
// the dialect supports; its parameters pass through untouched.
func (b *Builder) CustomSearchQuery(md *metadata.Metadata, fragment string, params map[string]interface{}, orderBy []criteria.Order, limit, offset int) (*store.Statement, error) {
	fragment = strings.TrimSpace(fragment)
	if fragment == "" {
		return nil, fmt.Errorf("empty query fragment")
	}

	var sb strings.Builder
	sb.WriteString(fragment)
	writeSearchReturn(&sb, md)
	writeOrderAndPage(&sb, md, orderBy, limit, offset)

	stmtParams := make(map[string]interface{}, len(params))
	for k, v := range params {
		stmtParams[k] = v
	}
	return &store.Statement{Text: sb.String(), Params: stmtParams}, nil
}

// CreateQuery renders the insert statement for an entity, returning the
// store-assigned identity. A nil statement (with nil error) signals there is
// nothing to persist.
func (b *Builder) CreateQuery(md *metadata.Metadata, entity interface{}) (*store.Statement, error) {
	props, err := b.dehydrator.Dehydrate(md, entity)
	if err != nil {
		return nil, fmt.Errorf("failed to dehydrate %s: %w", md.Label, err)
	}
	if len(props) == 0 {
		return nil, nil
	}

	text := fmt.Sprintf("CREATE (%s:%s) SET %s = $props RETURN id(%s) AS %s",
		md.NodeIdentifier, md.Label, md.NodeIdentifier, md.NodeIdentifier, md.IDColumn())
	return &store.Statement{
		Text:   text,
		Params: map[string]interface{}{"props": props},
	}, nil
}

// UpdateQuery renders the update statement for an already-identified entity.
// A nil statement (with nil error) signals there is nothing to persist.
func (b *Builder) UpdateQuery(md *metadata.Metadata, entity interface{}) (*store.Statement, error) {
	id, ok := md.IDValue(entity)
	if !ok {
		return nil, fmt.Errorf("%s entity has no identity, cannot build update", md.Label)
	}

	props, err := b.dehydrator.Dehydrate(md, entity)
	if err != nil {
		return nil, fmt.Errorf("failed to dehydrate %s: %w", md.Label, err)
	}
	if len(props) == 0 {
		return nil, nil
	}

	text := fmt.Sprintf("MATCH (%s:%s) WHERE id(%s) = $id SET %s += $props RETURN id(%s) AS %s",
		md.NodeIdentifier, md.Label, md.NodeIdentifier, md.NodeIdentifier, md.NodeIdentifier, md.IDColumn())
	return &store.Statement{
		Text:   text,
		Params: map[string]interface{}{"id": id, "props": props},
	}, nil
}

// DetachDeleteQuery renders a delete that severs the node's relationships
// before removing it, returning the deleted-records counter.
func (b *Builder) DetachDeleteQuery(md *metadata.Metadata, id int64) (*store.Statement, error) {
	text := fmt.Sprintf("MATCH (%s:%s) WHERE id(%s) = $id DETACH DELETE %s RETURN count(%s) AS %s",
		md.NodeIdentifier, md.Label, md.NodeIdentifier, md.NodeIdentifier, md.NodeIdentifier, md.DeletedColumn())
	return &store.Statement{
		Text:   text,
		Params: map[string]interface{}{"id": id},
	}, nil
}

// CountQuery renders a criteria count returning a single scalar row.
func (b *Builder) CountQuery(md *metadata.Metadata, c *criteria.Criteria) (*store.Statement, error) {
	var sb strings.Builder
	params := map[string]interface{}{}

	fmt.Fprintf(&sb, "MATCH (%s:%s)", md.NodeIdentifier, md.Label)
	writeWhere(&sb, md, c, params)
	fmt.Fprintf(&sb, " RETURN count(%s) AS %s", md.NodeIdentifier, md.CountColumn())

	return &store.Statement{Text: sb.String(), Params: params}, nil
}

// writeSearchReturn emits the search return convention: the node bag under
// the value column and its store identity under the id column, so hydration
// can both populate the entity and key the identity map.
func writeSearchReturn(sb *strings.Builder, md *metadata.Metadata) {
	fmt.Fprintf(sb, " RETURN %s AS %s, id(%s) AS %s",
		md.NodeIdentifier, md.ValueColumn(), md.NodeIdentifier, md.IDColumn())
}

func writeWhere(sb *strings.Builder, md *metadata.Metadata, c *criteria.Criteria, params map[string]interface{}) {
	if c == nil || c.IsEmpty() {
		return
	}
	sb.WriteString(" WHERE ")
	for i, clause := range c.Clauses {
		if i > 0 {
			sb.WriteString(" AND ")
		}
		param := fmt.Sprintf("p%d", i)
		if clause.Field == criteria.ID {
			fmt.Fprintf(sb, "id(%s) = $%s", md.NodeIdentifier, param)
		} else {
			fmt.Fprintf(sb, "%s.%s = $%s", md.NodeIdentifier, clause.Field, param)
		}
		params[param] = clause.Value
	}
}

func writeOrderAndPage(sb *strings.Builder, md *metadata.Metadata, orderBy []criteria.Order, limit, offset int) {
	for i, o := range orderBy {
		if i == 0 {
			sb.WriteString(" ORDER BY ")
		} else {
			sb.WriteString(", ")
		}
		fmt.Fprintf(sb, "%s.%s %s", md.NodeIdentifier, o.Field, o.Direction)
	}
	if offset > 0 {
		fmt.Fprintf(sb, " SKIP %d", offset)
	}
	if limit > 0 {
		fmt.Fprintf(sb, " LIMIT %d", limit)
	}
}
