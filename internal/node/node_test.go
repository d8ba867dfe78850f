package node

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatus_CanAdvance(t *testing.T) {
	testCases := []struct {
		from, to Status
		allowed  bool
	}{
		{StatusPending, StatusPending, true},
		{StatusPending, StatusActive, true},
		{StatusPending, StatusCompleted, false},
		{StatusActive, StatusCompleted, true},
		{StatusActive, StatusPending, false},
		{StatusCompleted, StatusActive, false},
		{StatusCompleted, StatusCompleted, true},
		{StatusActive, Status(7), false},
	}

	for _, tc := range testCases {
		t.Run(tc.from.String()+"->"+tc.to.String(), func(t *testing.T) {
			assert.Equal(t, tc.allowed, tc.from.CanAdvance(tc.to))
		})
	}
}

func TestNode_Advance(t *testing.T) {
	n := New("demographics", StatusPending, Position{}, DemographicsPayload{})

	require.NoError(t, n.Advance(StatusActive))
	require.NoError(t, n.Advance(StatusCompleted))

	err := n.Advance(StatusActive)
	require.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, StatusCompleted, n.Status)
}

func TestNode_ValidateKindMismatch(t *testing.T) {
	n := New("brand_style", StatusPending, Position{}, BrandStylePayload{})
	require.NoError(t, n.Validate())

	n.Kind = KindPreview
	assert.ErrorIs(t, n.Validate(), ErrKindMismatch)
}

func TestNode_CloneIsDeep(t *testing.T) {
	style := BrandStyle{Colors: []string{"#000000", "#FFFFFF"}, Mood: "bold"}
	demo := ConfirmedDemographics{Gender: "Any", AgeRange: AgeRange{Min: Age(18)}, Language: []string{"English"}}
	original := New("image_result.gx[0]", StatusActive, Position{X: 1}, ImageResultPayload{
		Creative: Creative{ImageRef: "https://img/0.png"},
		Source:   GeneratePayload{Demographics: demo, Style: style},
	})

	clone := original.Clone()
	payload := clone.Payload.(ImageResultPayload)
	payload.Source.Style.Colors[0] = "#123456"
	*payload.Source.Demographics.AgeRange.Min = 65
	payload.Source.Demographics.Language[0] = "French"

	src := original.Payload.(ImageResultPayload).Source
	assert.Equal(t, "#000000", src.Style.Colors[0])
	assert.Equal(t, 18, *src.Demographics.AgeRange.Min)
	assert.Equal(t, "English", src.Demographics.Language[0])
}

func TestKind_TextRoundTrip(t *testing.T) {
	for k := range kindNames {
		b, err := k.MarshalText()
		require.NoError(t, err)

		var parsed Kind
		require.NoError(t, parsed.UnmarshalText(b))
		assert.Equal(t, k, parsed)
	}

	_, err := ParseKind("canvas")
	assert.Error(t, err)
}

func TestNode_JSONShape(t *testing.T) {
	n := New("preview.image_result.gx[1]", StatusActive, Position{X: 960, Y: 180}, PreviewPayload{
		BranchID: "image_result.gx[1]",
		Creative: Creative{ImageRef: "data:image/png;base64,AAAA"},
	})

	raw, err := json.Marshal(n)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "preview", decoded["kind"])
	assert.Equal(t, "active", decoded["status"])
	assert.Equal(t, "image_result.gx[1]", decoded["payload"].(map[string]any)["branchId"])
}

func TestCreativeOf(t *testing.T) {
	c := Creative{ImageRef: "ref"}

	got, ok := CreativeOf(ImageResultPayload{Creative: c})
	assert.True(t, ok)
	assert.Equal(t, c, got)

	got, ok = CreativeOf(GeneratePayload{Creative: &c})
	assert.True(t, ok)
	assert.Equal(t, c, got)

	_, ok = CreativeOf(GeneratePayload{})
	assert.False(t, ok)

	_, ok = CreativeOf(BrandStylePayload{})
	assert.False(t, ok)
}

func TestEdge_Link(t *testing.T) {
	e := Link("brand_style", "image_result.gx[0]", true)
	assert.Equal(t, "brand_style->image_result.gx[0]", e.ID)
	assert.Equal(t, HandleOutput, e.SourceHandle)
	assert.Equal(t, HandleInput, e.TargetHandle)
	assert.True(t, e.Touches("brand_style"))
	assert.False(t, e.Touches("demographics"))
}
