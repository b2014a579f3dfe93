package features

import (
	"strings"

	"github.com/josephvaleri/giuseppe-aisomm-sub000/engine/domain"
)

// Dictionaries holds read-only sets of lowercase domain terms, one per entity
// type. Instances are immutable once built; callers refresh by swapping in a
// new value on their own cadence.
type Dictionaries struct {
	sets map[domain.EntityType]map[string]struct{}
}

// NewDictionaries builds a Dictionaries from term slices. Terms are lowercased.
func NewDictionaries(terms map[domain.EntityType][]string) *Dictionaries {
	sets := make(map[domain.EntityType]map[string]struct{}, len(terms))
	for et, list := range terms {
		set := make(map[string]struct{}, len(list))
		for _, t := range list {
			t = strings.ToLower(strings.TrimSpace(t))
			if t != "" {
				set[t] = struct{}{}
			}
		}
		sets[et] = set
	}
	return &Dictionaries{sets: sets}
}

// Size returns the total number of terms across all entity types.
func (d *Dictionaries) Size() int {
	if d == nil {
		return 0
	}
	n := 0
	for _, set := range d.sets {
		n += len(set)
	}
	return n
}

// Terms returns the term set for an entity type (nil-safe).
func (d *Dictionaries) Terms(et domain.EntityType) map[string]struct{} {
	if d == nil {
		return nil
	}
	return d.sets[et]
}

// CountMatches counts how many terms of the given type appear as substrings of
// the lowercased text. Matching is deliberately simple: no tokenization or
// stemming, so short terms can false-positive.
func (d *Dictionaries) CountMatches(et domain.EntityType, text string) int {
	lower := strings.ToLower(text)
	n := 0
	for term := range d.Terms(et) {
		if strings.Contains(lower, term) {
			n++
		}
	}
	return n
}

// CountAnyMatches counts terms across all entity types found in the text.
func (d *Dictionaries) CountAnyMatches(text string) int {
	n := 0
	for _, et := range domain.EntityTypes {
		n += d.CountMatches(et, text)
	}
	return n
}

// seedTerms is the compiled-in starter vocabulary, used until the knowledge
// graph supplies a fresher set.
var seedTerms = map[domain.EntityType][]string{
	domain.EntityGrape: {
		"sangiovese", "nebbiolo", "barbera", "montepulciano", "aglianico",
		"primitivo", "vermentino", "trebbiano", "cabernet sauvignon",
		"cabernet franc", "merlot", "pinot noir", "pinot grigio", "syrah",
		"grenache", "mourvedre", "tempranillo", "garnacha", "malbec",
		"chardonnay", "sauvignon blanc", "riesling", "chenin blanc",
		"viognier", "gewurztraminer", "zinfandel", "gamay", "albarino",
	},
	domain.EntityAppellation: {
		"chianti classico", "chianti", "barolo", "barbaresco", "brunello di montalcino",
		"vino nobile", "bolgheri", "margaux", "pauillac", "saint-julien",
		"pomerol", "saint-emilion", "chablis", "sancerre", "vouvray",
		"rioja", "ribera del duero", "priorat", "napa valley", "russian river valley",
	},
	domain.EntityRegion: {
		"tuscany", "piedmont", "veneto", "sicily", "puglia", "umbria",
		"bordeaux", "burgundy", "champagne", "loire", "rhone", "alsace",
		"provence", "rioja", "galicia", "mosel", "rheingau",
		"napa", "sonoma", "willamette", "barossa", "mendoza", "stellenbosch",
	},
	domain.EntityCountry: {
		"italy", "france", "spain", "germany", "portugal", "austria",
		"united states", "usa", "argentina", "chile", "australia",
		"new zealand", "south africa", "greece", "hungary",
	},
	domain.EntityWine: {
		"chianti classico riserva", "barolo riserva", "amarone",
		"prosecco", "champagne brut", "sauternes", "port", "sherry",
		"sassicaia", "tignanello", "ornellaia", "opus one",
	},
	domain.EntityProducer: {
		"antinori", "gaja", "frescobaldi", "banfi", "biondi-santi",
		"chateau margaux", "chateau latour", "domaine leroy",
		"vega sicilia", "penfolds", "ridge", "caymus",
	},
	domain.EntityClassification: {
		"docg", "doc", "igt", "aoc", "aop", "premier cru", "grand cru",
		"riserva", "reserva", "gran reserva", "classico", "superiore",
	},
}

// SeedDictionaries returns the compiled-in starter dictionaries.
func SeedDictionaries() *Dictionaries {
	return NewDictionaries(seedTerms)
}
