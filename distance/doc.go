// Package distance provides the similarity functions used to rank candidate
// vectors against a query.
//
// # Supported Metrics
//
//   - MetricCosine: Cosine similarity (default). A zero-magnitude vector on
//     either side scores 0.
//   - MetricDot: Dot product (inner product).
//   - MetricEuclidean: Negated Euclidean distance, so that larger scores are
//     always better regardless of the metric.
//
// # Usage
//
//	score := distance.Score(distance.MetricCosine, a, b)
//
//	// Precompute query-side work once per search:
//	scorer, _ := distance.NewScorer(distance.MetricCosine, query)
//	for _, v := range candidates {
//	    s := scorer(v)
//	}
package distance
