package graph

import (
	"context"
	"fmt"
)

// seedCountries is a small starter hierarchy for fresh deployments. The real
// catalog is loaded by the ingestion side; this is enough for the structured
// answer paths to work out of the box.
var seedCountries = []struct {
	country      Country
	regions      []Region
	appellations []Appellation
	grapes       []struct {
		grape  Grape
		appIDs []string
	}
	wines []Wine
}{
	{
		country: Country{ID: "it", Name: "Italy"},
		regions: []Region{
			{ID: "it-tuscany", Name: "Tuscany", CountryID: "it"},
			{ID: "it-piedmont", Name: "Piedmont", CountryID: "it"},
		},
		appellations: []Appellation{
			{ID: "it-chianti-classico", Name: "Chianti Classico", RegionID: "it-tuscany", Classification: "DOCG"},
			{ID: "it-brunello", Name: "Brunello di Montalcino", RegionID: "it-tuscany", Classification: "DOCG"},
			{ID: "it-barolo", Name: "Barolo", RegionID: "it-piedmont", Classification: "DOCG"},
		},
		grapes: []struct {
			grape  Grape
			appIDs []string
		}{
			{Grape{ID: "sangiovese", Name: "Sangiovese", Color: "red"}, []string{"it-chianti-classico", "it-brunello"}},
			{Grape{ID: "canaiolo", Name: "Canaiolo", Color: "red"}, []string{"it-chianti-classico"}},
			{Grape{ID: "nebbiolo", Name: "Nebbiolo", Color: "red"}, []string{"it-barolo"}},
			{Grape{ID: "trebbiano", Name: "Trebbiano", Color: "white"}, []string{"it-chianti-classico"}},
		},
		wines: []Wine{
			{ID: "chianti-classico-riserva", Name: "Chianti Classico Riserva", Color: "red", AppellationID: "it-chianti-classico"},
			{ID: "barolo-riserva", Name: "Barolo Riserva", Color: "red", AppellationID: "it-barolo"},
		},
	},
	{
		country: Country{ID: "fr", Name: "France"},
		regions: []Region{
			{ID: "fr-bordeaux", Name: "Bordeaux", CountryID: "fr"},
		},
		appellations: []Appellation{
			{ID: "fr-margaux", Name: "Margaux", RegionID: "fr-bordeaux", Classification: "AOC"},
			{ID: "fr-pauillac", Name: "Pauillac", RegionID: "fr-bordeaux", Classification: "AOC"},
		},
		grapes: []struct {
			grape  Grape
			appIDs []string
		}{
			{Grape{ID: "cabernet-sauvignon", Name: "Cabernet Sauvignon", Color: "red"}, []string{"fr-margaux", "fr-pauillac"}},
			{Grape{ID: "merlot", Name: "Merlot", Color: "red"}, []string{"fr-margaux"}},
			{Grape{ID: "sauvignon-blanc", Name: "Sauvignon Blanc", Color: "white"}, []string{"fr-pauillac"}},
		},
		wines: []Wine{
			{ID: "chateau-margaux", Name: "Chateau Margaux", Color: "red", AppellationID: "fr-margaux"},
		},
	},
}

// Seed writes the starter hierarchy. Idempotent: every write is a MERGE.
func (g *GraphStore) Seed(ctx context.Context) error {
	for _, c := range seedCountries {
		if err := g.SaveCountry(ctx, c.country); err != nil {
			return fmt.Errorf("graph: seed country %s: %w", c.country.Name, err)
		}
		for _, r := range c.regions {
			if err := g.SaveRegion(ctx, r); err != nil {
				return fmt.Errorf("graph: seed region %s: %w", r.Name, err)
			}
		}
		for _, a := range c.appellations {
			if err := g.SaveAppellation(ctx, a); err != nil {
				return fmt.Errorf("graph: seed appellation %s: %w", a.Name, err)
			}
		}
		for _, gr := range c.grapes {
			if err := g.SaveGrape(ctx, gr.grape, gr.appIDs...); err != nil {
				return fmt.Errorf("graph: seed grape %s: %w", gr.grape.Name, err)
			}
		}
		for _, w := range c.wines {
			if err := g.SaveWine(ctx, w); err != nil {
				return fmt.Errorf("graph: seed wine %s: %w", w.Name, err)
			}
		}
	}
	return nil
}
