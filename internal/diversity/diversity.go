// Package diversity provides weighted averaging under a per-group influence cap.
//
// Items are grouped, each group is reduced to its weighted mean, and the
// groups are combined using their item-count share as weight. A share above
// the cap is cut down to the cap and the excess is dropped rather than
// redistributed, so a heavily over-represented group measurably loses
// influence instead of having it smoothed back in.
//
// When only one group is present there is nothing to balance against and the
// result is that group's mean.
package diversity

import (
	"math"
	"sort"
)

// DefaultMaxGroupShare is the cap applied when a caller passes a non-positive share.
const DefaultMaxGroupShare = 0.4

// Item is one scored observation belonging to a group.
type Item struct {
	Value  float64
	Weight float64
	Group  string
}

// GroupContribution describes how one group entered the aggregate.
type GroupContribution struct {
	Group       string
	Count       int
	Mean        float64 // weighted mean of the group's values
	Share       float64 // count / total count
	CappedShare float64 // min(Share, maxGroupShare)
}

// Result is the aggregate together with its per-group breakdown, ordered by group name.
type Result struct {
	Value  float64
	Groups []GroupContribution
}

// Aggregate combines items so that no group's weight share exceeds maxGroupShare.
func Aggregate(items []Item, maxGroupShare float64) float64 {
	return Balance(items, maxGroupShare).Value
}

// Balance is Aggregate with the per-group breakdown. Items with a non-finite
// value are ignored. An empty input yields 0.
func Balance(items []Item, maxGroupShare float64) Result {
	if maxGroupShare <= 0 {
		maxGroupShare = DefaultMaxGroupShare
	}
	if maxGroupShare > 1 {
		maxGroupShare = 1
	}

	type acc struct {
		count     int
		weighted  float64
		weightSum float64
		plainSum  float64
	}
	groups := make(map[string]*acc)
	total := 0

	for _, item := range items {
		if math.IsNaN(item.Value) || math.IsInf(item.Value, 0) {
			continue
		}
		a, ok := groups[item.Group]
		if !ok {
			a = &acc{}
			groups[item.Group] = a
		}
		w := item.Weight
		if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
			w = 0
		}
		a.count++
		a.weighted += item.Value * w
		a.weightSum += w
		a.plainSum += item.Value
		total++
	}

	if total == 0 {
		return Result{}
	}

	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	sort.Strings(names)

	result := Result{Groups: make([]GroupContribution, 0, len(names))}
	for _, name := range names {
		a := groups[name]
		mean := a.plainSum / float64(a.count)
		if a.weightSum > 0 {
			mean = a.weighted / a.weightSum
		}
		share := float64(a.count) / float64(total)
		result.Groups = append(result.Groups, GroupContribution{
			Group:       name,
			Count:       a.count,
			Mean:        mean,
			Share:       share,
			CappedShare: math.Min(share, maxGroupShare),
		})
	}

	if len(result.Groups) == 1 {
		result.Groups[0].CappedShare = 1
		result.Value = result.Groups[0].Mean
		return result
	}

	for _, g := range result.Groups {
		result.Value += g.Mean * g.CappedShare
	}
	return result
}
