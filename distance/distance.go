package distance

import (
	"fmt"
	"math"
	"strings"
)

// Dot calculates the dot product of two vectors.
// Assumes vectors are the same length (caller's responsibility).
func Dot(a, b []float32) float32 {
	return float32(dot64(a, b))
}

// SquaredL2 calculates the squared L2 (Euclidean) distance between two vectors.
// Assumes vectors are the same length (caller's responsibility).
func SquaredL2(a, b []float32) float32 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return float32(sum)
}

// Norm returns the L2 norm (magnitude) of v.
func Norm(v []float32) float32 {
	return float32(math.Sqrt(dot64(v, v)))
}

// Cosine returns the cosine similarity of a and b.
// Returns 0 if either vector has zero magnitude.
func Cosine(a, b []float32) float32 {
	na := math.Sqrt(dot64(a, a))
	nb := math.Sqrt(dot64(b, b))
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot64(a, b) / (na * nb))
}

// Euclidean returns the negated Euclidean distance between a and b.
func Euclidean(a, b []float32) float32 {
	return -float32(math.Sqrt(float64(SquaredL2(a, b))))
}

func dot64(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

// Metric represents the similarity function used for vector comparison.
//
// The zero value is MetricCosine.
type Metric int

const (
	MetricCosine Metric = iota
	MetricDot
	MetricEuclidean
)

func (m Metric) String() string {
	switch m {
	case MetricCosine:
		return "cosine"
	case MetricDot:
		return "dot"
	case MetricEuclidean:
		return "euclidean"
	default:
		return fmt.Sprintf("unknown(%d)", int(m))
	}
}

// Valid reports whether m is a supported metric.
func (m Metric) Valid() bool {
	return m >= MetricCosine && m <= MetricEuclidean
}

// ParseMetric parses a metric name. Matching is case-insensitive.
func ParseMetric(s string) (Metric, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "cosine", "cos":
		return MetricCosine, nil
	case "dot", "ip", "inner_product":
		return MetricDot, nil
	case "euclidean", "euclid", "l2":
		return MetricEuclidean, nil
	default:
		return 0, fmt.Errorf("unsupported metric %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (m Metric) MarshalText() ([]byte, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("unsupported metric %d", int(m))
	}
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Metric) UnmarshalText(text []byte) error {
	parsed, err := ParseMetric(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Func is a function type for similarity calculation. Higher is more similar.
type Func func(a, b []float32) float32

// Provider returns the similarity function for the given metric.
func Provider(m Metric) (Func, error) {
	switch m {
	case MetricCosine:
		return Cosine, nil
	case MetricDot:
		return Dot, nil
	case MetricEuclidean:
		return Euclidean, nil
	default:
		return nil, fmt.Errorf("unsupported metric: %v", m)
	}
}

// Score computes the similarity of a and b under metric m.
// Unsupported metrics score 0.
func Score(m Metric, a, b []float32) float32 {
	f, err := Provider(m)
	if err != nil {
		return 0
	}
	return f(a, b)
}

// NewScorer returns a function that scores candidates against query.
// Query-side work (e.g. the cosine norm) is computed once.
func NewScorer(m Metric, query []float32) (func(v []float32) float32, error) {
	switch m {
	case MetricCosine:
		qn := math.Sqrt(dot64(query, query))
		return func(v []float32) float32 {
			if qn == 0 {
				return 0
			}
			vn := math.Sqrt(dot64(v, v))
			if vn == 0 {
				return 0
			}
			return float32(dot64(query, v) / (qn * vn))
		}, nil
	case MetricDot:
		return func(v []float32) float32 { return Dot(query, v) }, nil
	case MetricEuclidean:
		return func(v []float32) float32 { return Euclidean(query, v) }, nil
	default:
		return nil, fmt.Errorf("unsupported metric: %v", m)
	}
}
