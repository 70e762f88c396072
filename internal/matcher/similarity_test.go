package matcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeTitle(t *testing.T) {
	got := normalizeTitle("Will the Fed cut rates by 50bps in 2026?!")
	assert.Equal(t, "will the fed cut rates by 50bps in 2026", got)
}

func TestTitleSimilarity_Identical(t *testing.T) {
	score := titleSimilarity("Will BTC exceed $100k by March 2026", "Will BTC exceed $100k by March 2026")
	assert.Equal(t, 1.0, score)
}

func TestTitleSimilarity_ParaphraseScoresHigh(t *testing.T) {
	score := titleSimilarity(
		"Will the Fed cut interest rates in March 2026?",
		"Will the Federal Reserve cut interest rates in March 2026",
	)
	assert.Greater(t, score, 0.6)
}

func TestTitleSimilarity_Unrelated(t *testing.T) {
	score := titleSimilarity("Will it rain in Miami tomorrow", "Will the Lakers win the championship")
	assert.Less(t, score, 0.3)
}

func TestTitleSimilarity_EmptyInput(t *testing.T) {
	assert.Equal(t, 0.0, titleSimilarity("", "anything"))
	assert.Equal(t, 0.0, titleSimilarity("anything", ""))
}
