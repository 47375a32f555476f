package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CdubVentures/specdesk/internal/model"
)

func TestParseCandidateFile(t *testing.T) {
	doc := `
- kind: grid
  category: mice
  product: p1
  field: weight
  value: "59"
  score: 0.8
  source: pipeline
  evidence:
    url: https://example.com/specs
    quote: "Weight: 59g"
- kind: component
  category: mice
  component_type: sensor
  name: PAW3395
  maker: PixArt
  property: dpi
  value: "26000"
- kind: enum
  category: mice
  field: connectivity
  enum_value: wireless
  value: wireless
`
	candidates, err := parseCandidateFile([]byte(doc))
	require.NoError(t, err)
	require.Len(t, candidates, 3)

	assert.Equal(t, "grid|mice|p1|weight|", candidates[0].SlotKey)
	assert.Equal(t, "59", candidates[0].Value)
	assert.Equal(t, model.SourcePipeline, candidates[0].Source)
	assert.Equal(t, "https://example.com/specs", candidates[0].Evidence.URL)
	assert.NotEmpty(t, candidates[0].ID)

	assert.Contains(t, candidates[1].SlotKey, "component|mice|sensor|paw3395|pixart|dpi")
	// Source defaults to reference when omitted.
	assert.Equal(t, model.SourceReference, candidates[1].Source)

	assert.Contains(t, candidates[2].SlotKey, "enum|mice|connectivity|wireless")
}

func TestParseCandidateFile_Errors(t *testing.T) {
	t.Run("bad yaml", func(t *testing.T) {
		_, err := parseCandidateFile([]byte("- kind: [broken"))
		require.Error(t, err)
	})

	t.Run("invalid target", func(t *testing.T) {
		_, err := parseCandidateFile([]byte("- kind: grid\n  category: mice\n  value: \"59\"\n"))
		require.Error(t, err)
	})

	t.Run("missing value", func(t *testing.T) {
		doc := "- kind: grid\n  category: mice\n  product: p1\n  field: weight\n  value: unk\n"
		_, err := parseCandidateFile([]byte(doc))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "value is required")
	})
}
