// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package volume

import (
	"fmt"

	"github.com/pdiddy/fieldbook/pkg/types"
)

// Range is a half-open span [Start, End) of the ordered route list.
type Range struct {
	Start int
	End   int
}

// Len returns the number of routes in r.
func (r Range) Len() int { return r.End - r.Start }

// Partition splits n ordered routes into contiguous, non-empty volumes.
//
// With routes-per-volume K there are ceil(n/K) volumes of K routes and the
// last one takes what is left. With a total of V volumes each volume is
// filled with up to ceil(n/V) routes in order, so earlier volumes absorb the
// remainder (10 routes in 3 volumes is 4, 4, 2), and the fill stops short
// when the volumes still to come would otherwise be left empty.
func Partition(n int, policy types.PartitionPolicy) ([]Range, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	if n <= 0 {
		return nil, types.ErrEmptyRouteSet
	}

	var sizes []int
	switch policy.Mode {
	case types.PolicyTotalVolumes:
		v := policy.Value
		if v > n {
			return nil, fmt.Errorf("%w: %d volumes requested for %d routes", types.ErrTooManyVolumes, v, n)
		}
		per := (n + v - 1) / v
		left := n
		for i := 0; i < v; i++ {
			// Leave at least one route for each volume still to come.
			s := min(per, left-(v-i-1))
			sizes = append(sizes, s)
			left -= s
		}
	default:
		k := policy.Value
		for left := n; left > 0; left -= k {
			sizes = append(sizes, min(k, left))
		}
	}

	out := make([]Range, 0, len(sizes))
	start := 0
	for _, s := range sizes {
		out = append(out, Range{Start: start, End: start + s})
		start += s
	}
	return out, nil
}
