// Package rankings rolls per-event ratings into cluster and overall
// standings. Both stages are pure functions of already-persisted ratings:
// calling them redundantly never changes the outcome.
package rankings

import (
	"errors"
	"math"
	"sort"
)

var (
	ErrNoPrestigeWeights = errors.New("at least one prestige weight is required")
	ErrNoTierBuckets     = errors.New("at least one tier bucket is required")
)

// TierBucket allocates Weight across up to Size clusters.
type TierBucket struct {
	Size   int
	Weight float64
}

// Config holds the weighting scheme for both aggregation stages.
type Config struct {
	FloorRating           int         // rating floor, also the "never played" sentinel
	PrestigeWeights       []float64   // weights for a player's best events within a cluster
	DefaultPrestigeWeight float64     // weight for every event past the prestige list
	TierBuckets           []TierBucket
}

func (c Config) Validate() error {
	if len(c.PrestigeWeights) == 0 {
		return ErrNoPrestigeWeights
	}
	if len(c.TierBuckets) == 0 {
		return ErrNoTierBuckets
	}
	return nil
}

// ClusterRating rolls a player's per-event scoring ratings within one
// cluster into a cluster rating. Events still exactly at the floor have
// never been played and are excluded. The best events carry the prestige
// weights in order; every further event carries the default weight. The
// result is the weighted average, floored and rounded.
func (c Config) ClusterRating(eventRatings []int) int {
	qualifying := make([]int, 0, len(eventRatings))
	for _, r := range eventRatings {
		if r != c.FloorRating {
			qualifying = append(qualifying, r)
		}
	}
	return c.WeightedClusterRating(qualifying)
}

// WeightedClusterRating applies the prestige weighting to an already
// qualified rating list. Callers that qualify on a different field (raw
// vs scoring Elo) filter first and use this directly.
func (c Config) WeightedClusterRating(qualifying []int) int {
	if len(qualifying) == 0 {
		return c.FloorRating
	}
	qualifying = append([]int(nil), qualifying...)
	sort.Sort(sort.Reverse(sort.IntSlice(qualifying)))

	var weightedSum, weightSum float64
	for i, r := range qualifying {
		w := c.DefaultPrestigeWeight
		if i < len(c.PrestigeWeights) {
			w = c.PrestigeWeights[i]
		}
		weightedSum += w * float64(r)
		weightSum += w
	}

	rating := int(math.Round(weightedSum / weightSum))
	if rating < c.FloorRating {
		rating = c.FloorRating
	}
	return rating
}

// OverallRating rolls a player's cluster ratings into an overall rating.
// Clusters are sorted descending and partitioned into the configured
// buckets; within a bucket the weight splits equally per cluster present.
// Weight of empty bucket slots is not wasted: contributions are rescaled
// so the weight actually used sums to 1.0.
func (c Config) OverallRating(clusterRatings []int) int {
	if len(clusterRatings) == 0 {
		return c.FloorRating
	}
	sorted := make([]int, len(clusterRatings))
	copy(sorted, clusterRatings)
	sort.Sort(sort.Reverse(sort.IntSlice(sorted)))

	var weightedSum, usedWeight float64
	next := 0
	for _, bucket := range c.TierBuckets {
		if next >= len(sorted) {
			break
		}
		count := bucket.Size
		if remaining := len(sorted) - next; count > remaining {
			count = remaining
		}
		perCluster := bucket.Weight / float64(bucket.Size)
		for i := 0; i < count; i++ {
			weightedSum += perCluster * float64(sorted[next])
			usedWeight += perCluster
			next++
		}
	}
	if usedWeight == 0 {
		return c.FloorRating
	}

	rating := int(math.Round(weightedSum / usedWeight))
	if rating < c.FloorRating {
		rating = c.FloorRating
	}
	return rating
}
