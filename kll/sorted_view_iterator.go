package kll

// SortedViewIterator walks a sorted view in ascending order, exposing each
// item's weight and rank.
type SortedViewIterator[V Value] struct {
	quantiles  []V
	cumWeights []int64
	totalN     int64
	index      int
}

func newSortedViewIterator[V Value](quantiles []V, cumWeights []int64) *SortedViewIterator[V] {
	totalN := int64(0)
	if len(cumWeights) > 0 {
		totalN = cumWeights[len(cumWeights)-1]
	}
	return &SortedViewIterator[V]{
		quantiles:  quantiles,
		cumWeights: cumWeights,
		totalN:     totalN,
		index:      -1,
	}
}

func (i *SortedViewIterator[V]) Next() bool {
	i.index++
	return i.index < len(i.cumWeights)
}

func (i *SortedViewIterator[V]) GetValue() V {
	return i.quantiles[i.index]
}

func (i *SortedViewIterator[V]) GetWeight() int64 {
	if i.index == 0 {
		return i.cumWeights[0]
	}
	return i.cumWeights[i.index] - i.cumWeights[i.index-1]
}

func (i *SortedViewIterator[V]) GetNaturalRank(inclusive bool) int64 {
	if inclusive {
		return i.cumWeights[i.index]
	}
	if i.index == 0 {
		return 0
	}
	return i.cumWeights[i.index-1]
}

func (i *SortedViewIterator[V]) GetNormalizedRank(inclusive bool) float64 {
	return float64(i.GetNaturalRank(inclusive)) / float64(i.totalN)
}
