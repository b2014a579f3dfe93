package features

// RouteFeatures is the routing-level feature set. CanAnswerFromJoins is
// supplied by the caller (the synthesis path knows whether a structured join
// produced an answer).
type RouteFeatures struct {
	CanAnswerFromJoins bool
	RetrievalConf      float64
	IntentRegion       bool
	IntentGrape        bool
	ChunkQuality       float64
}

// ExtractRoute combines the structured-join signal, retrieval confidence, and
// intent flags into routing features. Chunk quality derives from the overlap
// metric between question and top passage.
func ExtractRoute(canAnswerFromJoins bool, qf QuestionFeatures, rf RetrievalFeatures) RouteFeatures {
	return RouteFeatures{
		CanAnswerFromJoins: canAnswerFromJoins,
		RetrievalConf:      rf.Top1Score,
		IntentRegion:       qf.Intents.Region,
		IntentGrape:        qf.Intents.Grape,
		ChunkQuality:       (rf.JaccardTop1 + rf.LCSOverlap) / 2,
	}
}

// Vector returns the features in RouteSchema order.
func (f RouteFeatures) Vector() []float64 {
	return []float64{
		b2f(f.CanAnswerFromJoins),
		f.RetrievalConf,
		b2f(f.IntentRegion),
		b2f(f.IntentGrape),
		f.ChunkQuality,
	}
}

// RerankVector builds the extended per-candidate vector in RerankSchema order:
// question features, retrieval features, candidate chunk length, and the
// candidate's original retrieval score.
func RerankVector(qf QuestionFeatures, rf RetrievalFeatures, chunkLen int, originalScore float64) []float64 {
	vec := make([]float64, 0, RerankSchema.Len())
	vec = append(vec, qf.Vector()...)
	vec = append(vec, rf.Vector()...)
	vec = append(vec, float64(chunkLen), originalScore)
	return vec
}
