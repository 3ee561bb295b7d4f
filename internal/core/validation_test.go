package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateHeaders(t *testing.T) {
	t.Run("all present in any order and case", func(t *testing.T) {
		idx, err := ValidateHeaders([]string{"Videos_Count", "extra", "REGION", "category_title", " trending_date"}, SourceFields)
		require.NoError(t, err)
		assert.Equal(t, 2, idx[ColRegion])
		assert.Equal(t, 4, idx[ColTrendingDate])
		assert.Equal(t, 0, idx[ColVideosCount])
	})

	t.Run("missing columns are all listed", func(t *testing.T) {
		_, err := ValidateHeaders([]string{"region", "trending_date"}, SourceFields)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrMissingColumns)
		assert.Contains(t, err.Error(), "category_title, videos_count")
	})

	t.Run("optional columns may be absent", func(t *testing.T) {
		specs := append([]FieldSpec{{Name: "channel"}}, SourceFields...)
		_, err := ValidateHeaders([]string{"region", "trending_date", "category_title", "videos_count"}, specs)
		assert.NoError(t, err)
	})
}

func TestBuildRawRow(t *testing.T) {
	idx := HeaderIndex{ColRegion: 0, ColTrendingDate: 1, ColCategoryTitle: 2, ColVideosCount: 5}

	raw := BuildRawRow([]string{"US", "2021-01-01", "Music"}, idx, SourceFields)
	assert.Equal(t, "US", raw.Get(ColRegion))
	assert.Equal(t, "Music", raw.Get(ColCategoryTitle))
	assert.Equal(t, "", raw.Get(ColVideosCount), "short row reads as empty")
	assert.Len(t, raw.Cells, 3)

	assert.Equal(t, "", RawRow{}.Get(ColRegion))
}

func TestIsEmptyRow(t *testing.T) {
	assert.True(t, isEmptyRow(nil))
	assert.True(t, isEmptyRow([]string{"", "  ", "\t"}))
	assert.False(t, isEmptyRow([]string{"", "x"}))
}
