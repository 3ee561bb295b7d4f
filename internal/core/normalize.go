package core

import (
	"fmt"
	"strings"
)

// SentinelMarker is the annotation upstream exports put in cells whose
// value was suppressed or estimated.
const SentinelMarker = "*"

// SentinelPolicy decides what happens to rows carrying SentinelMarker.
type SentinelPolicy int

const (
	// SentinelReject leaves marked cells to normal conversion, so a marked
	// count fails with ErrMalformedCount.
	SentinelReject SentinelPolicy = iota
	// SentinelDropRow drops rows where the share of marked cells reaches
	// the threshold. Rows below it are converted normally.
	SentinelDropRow
)

// Normalizer turns raw source rows into TrendingRecords. It has no side effects.
type Normalizer struct {
	Policy SentinelPolicy
	// Threshold is the share of marked cells (0,1] at which SentinelDropRow drops a row.
	Threshold float64
}

// NewNormalizer builds a Normalizer from a sentinel threshold.
// A threshold of 0 keeps the default reject behavior.
func NewNormalizer(threshold float64) Normalizer {
	if threshold <= 0 {
		return Normalizer{Policy: SentinelReject}
	}
	if threshold > 1 {
		threshold = 1
	}
	return Normalizer{Policy: SentinelDropRow, Threshold: threshold}
}

// Normalize converts one raw row. The returned record has RecordID 0.
func (n Normalizer) Normalize(raw RawRow) (TrendingRecord, error) {
	if n.Policy == SentinelDropRow && n.marked(raw.Cells) {
		return TrendingRecord{}, fmt.Errorf("%w: %d%% or more cells carry %q",
			ErrSentinelRow, int(n.Threshold*100), SentinelMarker)
	}

	region, err := ToText(ColRegion, raw.Get(ColRegion))
	if err != nil {
		return TrendingRecord{}, err
	}
	date, err := ToCanonicalDate(raw.Get(ColTrendingDate))
	if err != nil {
		return TrendingRecord{}, err
	}
	category, err := ToText(ColCategoryTitle, raw.Get(ColCategoryTitle))
	if err != nil {
		return TrendingRecord{}, err
	}
	count, err := ToCount(raw.Get(ColVideosCount))
	if err != nil {
		return TrendingRecord{}, err
	}

	return TrendingRecord{
		Region:        region,
		TrendingDate:  date,
		CategoryTitle: category,
		VideosCount:   count,
	}, nil
}

func (n Normalizer) marked(cells []string) bool {
	if len(cells) == 0 {
		return false
	}
	hits := 0
	for _, c := range cells {
		if strings.Contains(c, SentinelMarker) {
			hits++
		}
	}
	return float64(hits)/float64(len(cells)) >= n.Threshold
}
