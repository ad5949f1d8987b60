// Package distance estimates distances between uniformly random points by
// Monte-Carlo sampling.
//
// # Histogram
//
// [Histogram] samples pairs of points on the unit segment and bins |a-b|
// into Bins+1 buckets. [HistogramResult.WriteCSV] prints the fraction of
// samples per bucket:
//
//	bin,count,
//	0, 0.0197,
//	1, 0.01953,
//	...
//
// # Unit N-cube
//
// [Cube] samples pairs of points in the unit N-cube for every dimension
// 1..Dimensions at once: the coordinates for dimension d extend the sample
// used for d-1. For each power p it averages either the p-norm
// (sum |dx|^p)^(1/p) ([MetricRoot]) or the plain sum of powers
// ([MetricF]). Normalize divides by the length of the longest diagonal.
//
// Samples are split across Workers goroutines, each with its own PCG
// generator derived from Seed, so a run is reproducible for a fixed seed
// and worker count.
package distance
