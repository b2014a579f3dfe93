package features

import (
	"strings"

	"github.com/josephvaleri/giuseppe-aisomm-sub000/engine/domain"
)

// SourceFlags are heuristic source-category guesses for the top passage.
// Kept as a pluggable step so real source metadata can replace the heuristics
// without changing the schema shape.
type SourceFlags struct {
	TechSheet bool
	Review    bool
	Forum     bool
}

// SourceClassifier infers source categories from passage content.
type SourceClassifier func(passage domain.CandidatePassage) SourceFlags

// DefaultSourceClassifier guesses the category from substring checks on the
// passage text and source id.
func DefaultSourceClassifier(p domain.CandidatePassage) SourceFlags {
	lower := strings.ToLower(p.Text + " " + p.SourceID)
	return SourceFlags{
		TechSheet: containsAny(lower, "alcohol:", "acidity:", "residual sugar", "tech sheet", "ph:"),
		Review:    containsAny(lower, "points", "tasting note", "review", "palate", "finish"),
		Forum:     containsAny(lower, "forum", "thread", "replied", "posted by"),
	}
}

// AcceptanceRates are historical answer-acceptance statistics supplied by the
// caller. Zero values are the documented baseline when no history exists.
type AcceptanceRates struct {
	Global float64
	User   float64
}

// RetrievalFeatures is the retrieval-level feature set.
type RetrievalFeatures struct {
	Top1Score     float64
	MeanScore     float64
	ScoreGap      float64
	JaccardTop1   float64
	LCSOverlap    float64
	DictTermsTop1 float64
	Sources       SourceFlags
	Accept        AcceptanceRates
}

// ExtractRetrieval computes retrieval-level features from the question and its
// candidate passages. With no candidates every derived field resolves to the
// zero/false baseline; callers may ask for features before retrieval has run.
func ExtractRetrieval(question string, candidates []domain.CandidatePassage, dicts *Dictionaries, classify SourceClassifier, accept AcceptanceRates) RetrievalFeatures {
	f := RetrievalFeatures{Accept: accept}
	if len(candidates) == 0 {
		return f
	}
	if classify == nil {
		classify = DefaultSourceClassifier
	}

	top1 := candidates[0]
	f.Top1Score = top1.Score

	sum := 0.0
	for _, c := range candidates {
		sum += c.Score
	}
	f.MeanScore = sum / float64(len(candidates))

	if len(candidates) >= 2 {
		f.ScoreGap = candidates[0].Score - candidates[1].Score
	}

	qTokens := tokenize(question)
	pTokens := tokenize(top1.Text)
	f.JaccardTop1 = jaccard(qTokens, pTokens)
	f.LCSOverlap = lcsOverlap(qTokens, pTokens)
	f.DictTermsTop1 = float64(dicts.CountAnyMatches(top1.Text))
	f.Sources = classify(top1)

	return f
}

// Vector returns the features in RetrievalSchema order.
func (f RetrievalFeatures) Vector() []float64 {
	return []float64{
		f.Top1Score,
		f.MeanScore,
		f.ScoreGap,
		f.JaccardTop1,
		f.LCSOverlap,
		f.DictTermsTop1,
		b2f(f.Sources.TechSheet),
		b2f(f.Sources.Review),
		b2f(f.Sources.Forum),
		f.Accept.Global,
		f.Accept.User,
	}
}

func tokenize(s string) []string {
	fields := strings.Fields(strings.ToLower(s))
	out := make([]string, 0, len(fields))
	for _, w := range fields {
		w = strings.Trim(w, "?.,!;:'\"()")
		if w != "" {
			out = append(out, w)
		}
	}
	return out
}

// jaccard computes set overlap between two token lists.
func jaccard(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	setA := make(map[string]struct{}, len(a))
	for _, w := range a {
		setA[w] = struct{}{}
	}
	setB := make(map[string]struct{}, len(b))
	for _, w := range b {
		setB[w] = struct{}{}
	}
	inter := 0
	for w := range setA {
		if _, ok := setB[w]; ok {
			inter++
		}
	}
	union := len(setA) + len(setB) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// lcsOverlap approximates longest-common-subsequence overlap: the length of
// the longest in-order token run shared by both lists, normalized by the
// shorter list's length.
func lcsOverlap(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	// Classic DP over tokens; inputs are short (questions and passages).
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	best := 0
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				cur[j] = prev[j-1] + 1
			} else if prev[j] >= cur[j-1] {
				cur[j] = prev[j]
			} else {
				cur[j] = cur[j-1]
			}
			if cur[j] > best {
				best = cur[j]
			}
		}
		prev, cur = cur, prev
		for j := range cur {
			cur[j] = 0
		}
	}
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	return float64(best) / float64(n)
}
