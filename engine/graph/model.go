// Package graph provides Neo4j knowledge graph operations for the wine
// hierarchy: countries, regions, appellations, grapes, wines, and producers.
package graph

// Country is a wine-producing country node.
type Country struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Region is a wine region within a country.
type Region struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CountryID string `json:"country_id"`
}

// Appellation is a named growing area within a region.
type Appellation struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	RegionID       string `json:"region_id"`
	Classification string `json:"classification,omitempty"` // docg, aoc, ava, ...
}

// Grape is a grape variety node.
type Grape struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"` // red, white, rose
}

// Wine is a named wine node linked to its appellation.
type Wine struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Color         string `json:"color"`
	AppellationID string `json:"appellation_id"`
}

// Producer is a winery node.
type Producer struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	RegionID string `json:"region_id"`
}

// GrapeRow is a grape joined to the appellation it grows in, as returned by
// region-level queries.
type GrapeRow struct {
	Name        string `json:"name"`
	Color       string `json:"color"`
	Appellation string `json:"appellation"`
}

// WineRow is a wine joined to its appellation.
type WineRow struct {
	Name        string `json:"name"`
	Color       string `json:"color"`
	Appellation string `json:"appellation"`
}

// AppellationRow is an appellation with its region and classification.
type AppellationRow struct {
	Name           string `json:"name"`
	Region         string `json:"region"`
	Classification string `json:"classification,omitempty"`
}
