package graph

import (
	"context"
	"fmt"

	"github.com/josephvaleri/giuseppe-aisomm-sub000/pkg/repo"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// GraphStore provides wine knowledge graph operations.
type GraphStore struct {
	opener SessionOpener
	grapes *repo.Neo4jRepo[Grape, string]
}

// New creates a GraphStore on top of a neo4j driver.
func New(driver neo4j.DriverWithContext) *GraphStore {
	return &GraphStore{
		opener: &driverOpener{driver: driver},
		grapes: newGrapeRepo(driver),
	}
}

func errGrapeNotFound(id string) error {
	return fmt.Errorf("graph: grape %q not found", id)
}

// NewWithOpener creates a GraphStore with a custom session opener.
func NewWithOpener(opener SessionOpener) *GraphStore {
	return &GraphStore{opener: opener}
}

// SaveCountry creates or updates a Country node.
func (g *GraphStore) SaveCountry(ctx context.Context, c Country) error {
	sess := g.opener.OpenSession(ctx)
	defer sess.Close(ctx)

	cypher := `MERGE (n:Country {id: $id}) SET n.name = $name`
	_, err := sess.Run(ctx, cypher, map[string]any{"id": c.ID, "name": c.Name})
	return err
}

// SaveRegion creates or updates a Region node and links it to its Country.
func (g *GraphStore) SaveRegion(ctx context.Context, r Region) error {
	sess := g.opener.OpenSession(ctx)
	defer sess.Close(ctx)

	cypher := `MERGE (n:Region {id: $id}) SET n.name = $name, n.country_id = $countryID
	           WITH n
	           MATCH (c:Country {id: $countryID})
	           MERGE (c)-[:HAS_REGION]->(n)`
	_, err := sess.Run(ctx, cypher, map[string]any{
		"id": r.ID, "name": r.Name, "countryID": r.CountryID,
	})
	return err
}

// SaveAppellation creates or updates an Appellation node and links it to its Region.
func (g *GraphStore) SaveAppellation(ctx context.Context, a Appellation) error {
	sess := g.opener.OpenSession(ctx)
	defer sess.Close(ctx)

	cypher := `MERGE (n:Appellation {id: $id})
	           SET n.name = $name, n.region_id = $regionID, n.classification = $class
	           WITH n
	           MATCH (r:Region {id: $regionID})
	           MERGE (r)-[:HAS_APPELLATION]->(n)`
	_, err := sess.Run(ctx, cypher, map[string]any{
		"id": a.ID, "name": a.Name, "regionID": a.RegionID, "class": a.Classification,
	})
	return err
}

// SaveGrape creates or updates a Grape node and links it to the appellations
// that grow it.
func (g *GraphStore) SaveGrape(ctx context.Context, gr Grape, appellationIDs ...string) error {
	sess := g.opener.OpenSession(ctx)
	defer sess.Close(ctx)

	_, err := sess.ExecuteWrite(ctx, func(tx CypherRunner) (any, error) {
		cypher := `MERGE (n:Grape {id: $id}) SET n.name = $name, n.color = $color`
		if _, err := tx.Run(ctx, cypher, map[string]any{
			"id": gr.ID, "name": gr.Name, "color": gr.Color,
		}); err != nil {
			return nil, err
		}
		for _, appID := range appellationIDs {
			link := `MATCH (a:Appellation {id: $appID}), (gr:Grape {id: $id})
			         MERGE (a)-[:GROWS]->(gr)`
			if _, err := tx.Run(ctx, link, map[string]any{"appID": appID, "id": gr.ID}); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	return err
}

// SaveWine creates or updates a Wine node and links it to its Appellation.
func (g *GraphStore) SaveWine(ctx context.Context, w Wine) error {
	sess := g.opener.OpenSession(ctx)
	defer sess.Close(ctx)

	cypher := `MERGE (n:Wine {id: $id})
	           SET n.name = $name, n.color = $color, n.appellation_id = $appID
	           WITH n
	           MATCH (a:Appellation {id: $appID})
	           MERGE (n)-[:FROM]->(a)`
	_, err := sess.Run(ctx, cypher, map[string]any{
		"id": w.ID, "name": w.Name, "color": w.Color, "appID": w.AppellationID,
	})
	return err
}

// SaveProducer creates or updates a Producer node and links it to its Region.
func (g *GraphStore) SaveProducer(ctx context.Context, p Producer) error {
	sess := g.opener.OpenSession(ctx)
	defer sess.Close(ctx)

	cypher := `MERGE (n:Producer {id: $id}) SET n.name = $name, n.region_id = $regionID
	           WITH n
	           MATCH (r:Region {id: $regionID})
	           MERGE (n)-[:IN_REGION]->(r)`
	_, err := sess.Run(ctx, cypher, map[string]any{
		"id": p.ID, "name": p.Name, "regionID": p.RegionID,
	})
	return err
}

// GrapesInRegion returns grapes grown in appellations of the named region,
// optionally constrained to a country. Matching is case-insensitive.
func (g *GraphStore) GrapesInRegion(ctx context.Context, region, country string) ([]GrapeRow, error) {
	sess := g.opener.OpenSession(ctx)
	defer sess.Close(ctx)

	cypher := `MATCH (c:Country)-[:HAS_REGION]->(r:Region)-[:HAS_APPELLATION]->(a:Appellation)-[:GROWS]->(gr:Grape)
	           WHERE toLower(r.name) = toLower($region)`
	params := map[string]any{"region": region}
	if country != "" {
		cypher += ` AND toLower(c.name) = toLower($country)`
		params["country"] = country
	}
	cypher += ` RETURN gr.name AS name, gr.color AS color, a.name AS appellation
	            ORDER BY color, name`

	result, err := sess.Run(ctx, cypher, params)
	if err != nil {
		return nil, fmt.Errorf("graph: grapes in region %q: %w", region, err)
	}

	var rows []GrapeRow
	for result.Next(ctx) {
		rec := result.Record()
		rows = append(rows, GrapeRow{
			Name:        strVal(rec, "name"),
			Color:       strVal(rec, "color"),
			Appellation: strVal(rec, "appellation"),
		})
	}
	return rows, result.Err()
}

// WinesFromRegion returns wines made in appellations of the named region.
func (g *GraphStore) WinesFromRegion(ctx context.Context, region string) ([]WineRow, error) {
	sess := g.opener.OpenSession(ctx)
	defer sess.Close(ctx)

	cypher := `MATCH (r:Region)-[:HAS_APPELLATION]->(a:Appellation)<-[:FROM]-(w:Wine)
	           WHERE toLower(r.name) = toLower($region)
	           RETURN w.name AS name, w.color AS color, a.name AS appellation
	           ORDER BY color, name`
	result, err := sess.Run(ctx, cypher, map[string]any{"region": region})
	if err != nil {
		return nil, fmt.Errorf("graph: wines from region %q: %w", region, err)
	}

	var rows []WineRow
	for result.Next(ctx) {
		rec := result.Record()
		rows = append(rows, WineRow{
			Name:        strVal(rec, "name"),
			Color:       strVal(rec, "color"),
			Appellation: strVal(rec, "appellation"),
		})
	}
	return rows, result.Err()
}

// AppellationsIn returns appellations under the named region or country.
func (g *GraphStore) AppellationsIn(ctx context.Context, place string) ([]AppellationRow, error) {
	sess := g.opener.OpenSession(ctx)
	defer sess.Close(ctx)

	cypher := `MATCH (c:Country)-[:HAS_REGION]->(r:Region)-[:HAS_APPELLATION]->(a:Appellation)
	           WHERE toLower(r.name) = toLower($place) OR toLower(c.name) = toLower($place)
	           RETURN a.name AS name, r.name AS region, a.classification AS classification
	           ORDER BY name`
	result, err := sess.Run(ctx, cypher, map[string]any{"place": place})
	if err != nil {
		return nil, fmt.Errorf("graph: appellations in %q: %w", place, err)
	}

	var rows []AppellationRow
	for result.Next(ctx) {
		rec := result.Record()
		rows = append(rows, AppellationRow{
			Name:           strVal(rec, "name"),
			Region:         strVal(rec, "region"),
			Classification: strVal(rec, "classification"),
		})
	}
	return rows, result.Err()
}

// nodeLabels maps entity types to graph labels for dictionary refresh.
var nodeLabels = map[string]string{
	"grape":       "Grape",
	"appellation": "Appellation",
	"region":      "Region",
	"country":     "Country",
	"wine":        "Wine",
	"producer":    "Producer",
}

// EntityTerms returns the lowercase names of all nodes of the given entity
// type, for entity dictionary refresh.
func (g *GraphStore) EntityTerms(ctx context.Context, entityType string) ([]string, error) {
	label, ok := nodeLabels[entityType]
	if !ok {
		return nil, fmt.Errorf("graph: unknown entity type %q", entityType)
	}

	sess := g.opener.OpenSession(ctx)
	defer sess.Close(ctx)

	cypher := fmt.Sprintf(`MATCH (n:%s) RETURN toLower(n.name) AS name ORDER BY name`, label)
	result, err := sess.Run(ctx, cypher, nil)
	if err != nil {
		return nil, fmt.Errorf("graph: entity terms %s: %w", entityType, err)
	}

	var terms []string
	for result.Next(ctx) {
		if name := strVal(result.Record(), "name"); name != "" {
			terms = append(terms, name)
		}
	}
	return terms, result.Err()
}

func strVal(rec map[string]any, key string) string {
	if v, ok := rec[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
