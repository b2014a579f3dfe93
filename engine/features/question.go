package features

import (
	"regexp"
	"strings"

	"github.com/josephvaleri/giuseppe-aisomm-sub000/engine/domain"
)

var (
	yearRe    = regexp.MustCompile(`\b((?:19|20)\d{2})\b`)
	priceRe   = regexp.MustCompile(`[$€£]\s?\d+(?:[.,]\d+)?|\b\d+(?:[.,]\d+)?\s?(?:dollars|euros|eur|usd)\b`)
	percentRe = regexp.MustCompile(`\b\d+(?:[.,]\d+)?\s?%`)
)

// IntentFlags are the independent rule-based intent detections. Several flags
// may be true for the same question.
type IntentFlags struct {
	Pairing        bool
	Region         bool
	Grape          bool
	Cellar         bool
	Recommendation bool
	Joke           bool
	NonDomain      bool
}

// intentDetector names one boolean intent test. Detectors are independent;
// adding a new intent is a data change, not a new branch.
type intentDetector struct {
	name string
	test func(lower string, d *Dictionaries) bool
}

var intentDetectors = []intentDetector{
	{"pairing", func(s string, _ *Dictionaries) bool {
		return containsAny(s, "pair", "go with", "goes with", "match with", "serve with", "food")
	}},
	{"region", func(s string, d *Dictionaries) bool {
		return containsAny(s, "region", "where", "appellation", "terroir") ||
			d.CountMatches(domain.EntityRegion, s) > 0
	}},
	{"grape", func(s string, d *Dictionaries) bool {
		return containsAny(s, "grape", "variet", "varietal") ||
			d.CountMatches(domain.EntityGrape, s) > 0
	}},
	{"cellar", func(s string, _ *Dictionaries) bool {
		return containsAny(s, "my cellar", "my collection", "my bottles", "inventory", "drink window", "when should i drink")
	}},
	{"recommendation", func(s string, _ *Dictionaries) bool {
		return containsAny(s, "recommend", "suggest", "best wine", "good wine", "what should i", "similar to")
	}},
	{"joke", func(s string, _ *Dictionaries) bool {
		return containsAny(s, "joke", "funny", "make me laugh")
	}},
	{"nondomain", func(s string, d *Dictionaries) bool {
		if containsAny(s, "wine", "grape", "vineyard", "bottle", "vintage", "cellar", "winery", "appellation") {
			return false
		}
		return d.CountAnyMatches(s) == 0
	}},
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// QuestionFeatures is the question-level feature set.
type QuestionFeatures struct {
	CharLen    float64
	TokenCount float64
	HasYear    bool
	HasPrice   bool
	HasPercent bool

	// One substring-match count per entity dictionary, in EntityTypes order.
	EntityCounts map[domain.EntityType]int

	Intents IntentFlags
}

// ExtractQuestion computes question-level features. Pure and deterministic:
// no I/O, inputs are not mutated.
func ExtractQuestion(question string, dicts *Dictionaries) QuestionFeatures {
	lower := strings.ToLower(question)

	counts := make(map[domain.EntityType]int, len(domain.EntityTypes))
	for _, et := range domain.EntityTypes {
		counts[et] = dicts.CountMatches(et, question)
	}

	flags := IntentFlags{}
	for _, det := range intentDetectors {
		hit := det.test(lower, dicts)
		switch det.name {
		case "pairing":
			flags.Pairing = hit
		case "region":
			flags.Region = hit
		case "grape":
			flags.Grape = hit
		case "cellar":
			flags.Cellar = hit
		case "recommendation":
			flags.Recommendation = hit
		case "joke":
			flags.Joke = hit
		case "nondomain":
			flags.NonDomain = hit
		}
	}

	return QuestionFeatures{
		CharLen:      float64(len(question)),
		TokenCount:   float64(len(strings.Fields(question))),
		HasYear:      yearRe.MatchString(question),
		HasPrice:     priceRe.MatchString(lower),
		HasPercent:   percentRe.MatchString(question),
		EntityCounts: counts,
		Intents:      flags,
	}
}

// Vector returns the features in QuestionSchema order.
func (f QuestionFeatures) Vector() []float64 {
	return []float64{
		f.CharLen,
		f.TokenCount,
		b2f(f.HasYear),
		b2f(f.HasPrice),
		b2f(f.HasPercent),
		float64(f.EntityCounts[domain.EntityGrape]),
		float64(f.EntityCounts[domain.EntityAppellation]),
		float64(f.EntityCounts[domain.EntityRegion]),
		float64(f.EntityCounts[domain.EntityCountry]),
		float64(f.EntityCounts[domain.EntityWine]),
		float64(f.EntityCounts[domain.EntityProducer]),
		float64(f.EntityCounts[domain.EntityClassification]),
		b2f(f.Intents.Pairing),
		b2f(f.Intents.Region),
		b2f(f.Intents.Grape),
		b2f(f.Intents.Cellar),
		b2f(f.Intents.Recommendation),
		b2f(f.Intents.Joke),
		b2f(f.Intents.NonDomain),
	}
}
