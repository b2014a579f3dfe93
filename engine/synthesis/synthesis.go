// Package synthesis is the deterministic knowledge path: it pattern-matches a
// question against known shapes and answers directly from relational joins in
// the knowledge graph, without invoking any learned model. It runs alongside
// the learned router, whose output decides whether this path's answer is
// preferred over retrieval.
package synthesis

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"

	"github.com/josephvaleri/giuseppe-aisomm-sub000/engine/graph"
)

// Querier is the read boundary to the knowledge graph.
type Querier interface {
	GrapesInRegion(ctx context.Context, region, country string) ([]graph.GrapeRow, error)
	WinesFromRegion(ctx context.Context, region string) ([]graph.WineRow, error)
	AppellationsIn(ctx context.Context, place string) ([]graph.AppellationRow, error)
}

// Result is the synthesis outcome. CanAnswer=false means no shape matched
// with data behind it and the caller should fall back to retrieval.
type Result struct {
	Answer    string `json:"answer"`
	CanAnswer bool   `json:"can_answer"`
}

// pattern pairs a question-shape matcher with its handler. Patterns are
// evaluated in order; the first one that matches syntactically AND yields at
// least one row wins. A syntactic match with zero rows falls through; it is
// not the same as no match.
type pattern struct {
	name    string
	re      *regexp.Regexp
	handler func(ctx context.Context, e *Engine, groups []string) (string, bool, error)
}

const placePat = `([a-zA-Z][a-zA-Z '\-]*[a-zA-Z])`

var patterns = []pattern{
	{
		name: "grapes_in_region_of_country",
		re:   regexp.MustCompile(`(?i)\bgrapes?\b.*?\b(?:used|grown|planted)?\s*in\s+(?:the\s+)?` + placePat + `\s+(?:of|in)\s+` + placePat + `\s*[?.!]*\s*$`),
		handler: func(ctx context.Context, e *Engine, g []string) (string, bool, error) {
			rows, err := e.graph.GrapesInRegion(ctx, g[1], g[2])
			if err != nil || len(rows) == 0 {
				return "", false, err
			}
			return formatGrapes(g[1], rows), true, nil
		},
	},
	{
		name: "grapes_in_region",
		re:   regexp.MustCompile(`(?i)\bgrapes?\b.*?\b(?:used|grown|planted)?\s*in\s+(?:the\s+)?` + placePat + `\s*[?.!]*\s*$`),
		handler: func(ctx context.Context, e *Engine, g []string) (string, bool, error) {
			rows, err := e.graph.GrapesInRegion(ctx, g[1], "")
			if err != nil || len(rows) == 0 {
				return "", false, err
			}
			return formatGrapes(g[1], rows), true, nil
		},
	},
	{
		name: "wines_from_region",
		re:   regexp.MustCompile(`(?i)\bwines?\b.*?\bfrom\s+(?:the\s+)?` + placePat + `\s*[?.!]*\s*$`),
		handler: func(ctx context.Context, e *Engine, g []string) (string, bool, error) {
			rows, err := e.graph.WinesFromRegion(ctx, g[1])
			if err != nil || len(rows) == 0 {
				return "", false, err
			}
			return formatWines(g[1], rows), true, nil
		},
	},
	{
		name: "appellations_in_place",
		re:   regexp.MustCompile(`(?i)\bappellations?\b.*?\b(?:in|of)\s+(?:the\s+)?` + placePat + `\s*[?.!]*\s*$`),
		handler: func(ctx context.Context, e *Engine, g []string) (string, bool, error) {
			rows, err := e.graph.AppellationsIn(ctx, g[1])
			if err != nil || len(rows) == 0 {
				return "", false, err
			}
			return formatAppellations(g[1], rows), true, nil
		},
	},
}

// Engine evaluates question shapes against the graph.
type Engine struct {
	graph  Querier
	logger *slog.Logger
}

// New creates a synthesis Engine.
func New(querier Querier, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{graph: querier, logger: logger}
}

// Synthesize tries each known shape in priority order. Graph errors on one
// shape are logged and treated as an empty result so later shapes still run.
func (e *Engine) Synthesize(ctx context.Context, question string) Result {
	for _, p := range patterns {
		groups := p.re.FindStringSubmatch(question)
		if groups == nil {
			continue
		}
		answer, ok, err := p.handler(ctx, e, groups)
		if err != nil {
			e.logger.Warn("synthesis query failed, trying next shape", "pattern", p.name, "err", err)
			continue
		}
		if !ok {
			// Matched but empty: fall through to the next shape.
			continue
		}
		e.logger.Info("synthesis answered", "pattern", p.name)
		return Result{Answer: answer, CanAnswer: true}
	}
	return Result{}
}

func formatGrapes(region string, rows []graph.GrapeRow) string {
	byColor := groupBy(rows, func(r graph.GrapeRow) string { return r.Color })

	var b strings.Builder
	fmt.Fprintf(&b, "Grapes grown in %s:\n", title(region))
	for _, color := range colorOrder(byColor) {
		fmt.Fprintf(&b, "%s:\n", title(color))
		for _, r := range dedupeGrapes(byColor[color]) {
			fmt.Fprintf(&b, "- %s (%s)\n", r.Name, r.Appellation)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatWines(region string, rows []graph.WineRow) string {
	byColor := groupBy(rows, func(r graph.WineRow) string { return r.Color })

	var b strings.Builder
	fmt.Fprintf(&b, "Wines from %s:\n", title(region))
	for _, color := range colorOrder(byColor) {
		fmt.Fprintf(&b, "%s:\n", title(color))
		for _, r := range byColor[color] {
			fmt.Fprintf(&b, "- %s (%s)\n", r.Name, r.Appellation)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatAppellations(place string, rows []graph.AppellationRow) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Appellations in %s:\n", title(place))
	for _, r := range rows {
		if r.Classification != "" {
			fmt.Fprintf(&b, "- %s %s (%s)\n", r.Name, r.Classification, r.Region)
		} else {
			fmt.Fprintf(&b, "- %s (%s)\n", r.Name, r.Region)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func groupBy[T any](rows []T, key func(T) string) map[string][]T {
	out := make(map[string][]T)
	for _, r := range rows {
		k := key(r)
		out[k] = append(out[k], r)
	}
	return out
}

// colorOrder returns present color groups in a fixed red/white/rose order,
// with anything else appended after.
func colorOrder[T any](byColor map[string][]T) []string {
	order := []string{"red", "white", "rose"}
	var out []string
	seen := make(map[string]bool)
	for _, c := range order {
		if _, ok := byColor[c]; ok {
			out = append(out, c)
			seen[c] = true
		}
	}
	var extra []string
	for c := range byColor {
		if !seen[c] {
			extra = append(extra, c)
		}
	}
	sort.Strings(extra)
	return append(out, extra...)
}

func dedupeGrapes(rows []graph.GrapeRow) []graph.GrapeRow {
	seen := make(map[string]bool)
	var out []graph.GrapeRow
	for _, r := range rows {
		if seen[r.Name] {
			continue
		}
		seen[r.Name] = true
		out = append(out, r)
	}
	return out
}

func title(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		if len(w) > 0 {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}
