package graph

import (
	"context"

	"github.com/josephvaleri/giuseppe-aisomm-sub000/pkg/repo"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"
)

// newGrapeRepo creates a Neo4j-backed repository for Grape nodes.
func newGrapeRepo(driver neo4j.DriverWithContext) *repo.Neo4jRepo[Grape, string] {
	return repo.NewNeo4jRepo[Grape, string](
		driver,
		"Grape",
		grapeToMap,
		grapeFromRecord,
	)
}

func grapeToMap(g Grape) map[string]any {
	return map[string]any{
		"id":    g.ID,
		"name":  g.Name,
		"color": g.Color,
	}
}

func grapeFromRecord(rec *neo4j.Record) (Grape, error) {
	node, _, err := neo4j.GetRecordValue[dbtype.Node](rec, "n")
	if err != nil {
		return Grape{}, err
	}
	return grapeFromProps(node.Props), nil
}

func grapeFromProps(props map[string]any) Grape {
	return Grape{
		ID:    strVal(props, "id"),
		Name:  strVal(props, "name"),
		Color: strVal(props, "color"),
	}
}

// GetGrape returns a grape by ID. Falls back to an opener-based query when
// the store was built without a driver.
func (g *GraphStore) GetGrape(ctx context.Context, id string) (Grape, error) {
	if g.grapes != nil {
		return g.grapes.Get(ctx, id)
	}

	sess := g.opener.OpenSession(ctx)
	defer sess.Close(ctx)

	result, err := sess.Run(ctx, `MATCH (n:Grape {id: $id})
	                              RETURN n.id AS id, n.name AS name, n.color AS color`,
		map[string]any{"id": id})
	if err != nil {
		return Grape{}, err
	}
	if !result.Next(ctx) {
		return Grape{}, errGrapeNotFound(id)
	}
	return grapeFromProps(result.Record()), nil
}

// ListGrapes returns grapes with pagination.
func (g *GraphStore) ListGrapes(ctx context.Context, opts repo.ListOpts) ([]Grape, error) {
	if g.grapes != nil {
		return g.grapes.List(ctx, opts)
	}

	sess := g.opener.OpenSession(ctx)
	defer sess.Close(ctx)

	limit := opts.Limit
	if limit <= 0 {
		limit = 100
	}
	result, err := sess.Run(ctx, `MATCH (n:Grape)
	                              RETURN n.id AS id, n.name AS name, n.color AS color
	                              ORDER BY name SKIP $offset LIMIT $limit`,
		map[string]any{"offset": opts.Offset, "limit": limit})
	if err != nil {
		return nil, err
	}

	var grapes []Grape
	for result.Next(ctx) {
		grapes = append(grapes, grapeFromProps(result.Record()))
	}
	return grapes, result.Err()
}
