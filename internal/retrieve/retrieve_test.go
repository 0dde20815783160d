package retrieve

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/footnote/backend/internal/store"
)

func TestBuildOrQuery_DropsShortWords(t *testing.T) {
	assert.Equal(t, "invoices OR march", buildOrQuery("in invoices of march"))
}

func TestBuildOrQuery_AllShortWordsPassesThrough(t *testing.T) {
	assert.Equal(t, "a an", buildOrQuery("a an"))
}

func TestRecencyScore_NowIsOne(t *testing.T) {
	now := time.Now()
	assert.InDelta(t, 1.0, recencyScore(&now, recencyHalfLifeDays), 0.01)
}

func TestRecencyScore_HalfLifeAgeIsHalf(t *testing.T) {
	then := time.Now().Add(-time.Duration(recencyHalfLifeDays*24) * time.Hour)
	assert.InDelta(t, 0.5, recencyScore(&then, recencyHalfLifeDays), 0.01)
}

func TestRecencyScore_NilDefaultsToHalf(t *testing.T) {
	assert.Equal(t, 0.5, recencyScore(nil, recencyHalfLifeDays))
}

func TestRecencyScore_MonotonicallyDecreasesWithAge(t *testing.T) {
	newer := time.Now().Add(-1 * time.Hour)
	older := time.Now().Add(-500 * time.Hour)
	assert.Greater(t, recencyScore(&newer, recencyHalfLifeDays), recencyScore(&older, recencyHalfLifeDays))
}

func TestFuse_WeightedSum_BoundedAndOrdered(t *testing.T) {
	r := New(nil, nil, nil)
	id1, id2, id3 := uuid.New(), uuid.New(), uuid.New()
	now := time.Now()

	vectorHits := []store.SearchHit{
		{ChunkID: id1, Score: 0.9, FileUpdated: &now},
		{ChunkID: id2, Score: 0.4, FileUpdated: &now},
	}
	keywordHits := []store.SearchHit{
		{ChunkID: id2, Score: 1.0, FileUpdated: &now},
		{ChunkID: id3, Score: 0.2, FileUpdated: &now},
	}

	results := r.fuse(vectorHits, keywordHits)
	assert.Len(t, results, 3)
	for _, res := range results {
		assert.GreaterOrEqual(t, res.WeightedScore, 0.0)
		assert.LessOrEqual(t, res.WeightedScore, 1.0)
	}
	// id1 has the highest vector score and no keyword competition; id2
	// benefits from both signals but a lower vector score.
	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].WeightedScore, results[i].WeightedScore)
	}
}

func TestFuse_RRF_ProducesDescendingOrder(t *testing.T) {
	r := New(nil, nil, nil, WithFusionStrategy(RRF))
	id1, id2 := uuid.New(), uuid.New()

	vectorHits := []store.SearchHit{{ChunkID: id1, Score: 0.9}, {ChunkID: id2, Score: 0.8}}
	keywordHits := []store.SearchHit{{ChunkID: id1, Score: 0.5}}

	results := r.fuse(vectorHits, keywordHits)
	assert.Len(t, results, 2)
	assert.Equal(t, id1, results[0].ChunkID, "id1 ranks first in both signals")
	assert.Greater(t, results[0].WeightedScore, results[1].WeightedScore)
}

func TestFuse_MissingSignalDefaultsToZero(t *testing.T) {
	r := New(nil, nil, nil)
	id1 := uuid.New()
	vectorOnly := []store.SearchHit{{ChunkID: id1, Score: 0.7}}

	results := r.fuse(vectorOnly, nil)
	assert.Len(t, results, 1)
	assert.Equal(t, 0.0, results[0].KeywordScore)
}
