package app

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pscheid92/codedrop/internal/domain"
)

func TestReconstruct_BaseTextPreference(t *testing.T) {
	tests := []struct {
		name string
		ev   domain.InboundEvent
		want string
	}{
		{"text", domain.InboundEvent{Text: "t", AltText: "a", Caption: "c"}, "t"},
		{"alt text", domain.InboundEvent{AltText: "a", Caption: "c"}, "a"},
		{"caption", domain.InboundEvent{Caption: "c"}, "c"},
		{"nothing", domain.InboundEvent{}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Reconstruct(tt.ev))
		})
	}
}

func TestReconstruct_AppendsTextLinksInOrder(t *testing.T) {
	ev := domain.InboundEvent{
		Text: "Claim here or there",
		Annotations: []domain.Annotation{
			{Offset: 14, Length: 5, Kind: domain.AnnotationTextLink, URL: "https://b.example"},
			{Offset: 6, Length: 4, Kind: domain.AnnotationTextLink, URL: "https://a.example"},
		},
	}

	assert.Equal(t, "Claim here or there\nthere: https://b.example\nhere: https://a.example", Reconstruct(ev))
}

func TestReconstruct_IgnoresOtherKinds(t *testing.T) {
	ev := domain.InboundEvent{
		Text: "see https://x.example",
		Annotations: []domain.Annotation{
			{Offset: 4, Length: 17, Kind: domain.AnnotationURL},
			{Offset: 0, Length: 3, Kind: domain.AnnotationOther},
		},
	}

	assert.Equal(t, "see https://x.example", Reconstruct(ev))
}

func TestReconstruct_SkipsOutOfBounds(t *testing.T) {
	ev := domain.InboundEvent{
		Text: "short",
		Annotations: []domain.Annotation{
			{Offset: 3, Length: 10, Kind: domain.AnnotationTextLink, URL: "https://bad.example"},
			{Offset: 9, Length: 0, Kind: domain.AnnotationTextLink, URL: "https://bad.example"},
			{Offset: -1, Length: 2, Kind: domain.AnnotationTextLink, URL: "https://bad.example"},
			{Offset: 0, Length: 5, Kind: domain.AnnotationTextLink, URL: "https://ok.example"},
		},
	}

	assert.Equal(t, "short\nshort: https://ok.example", Reconstruct(ev))
}

func TestReconstruct_UTF16Offsets(t *testing.T) {
	// The emoji occupies two UTF-16 code units.
	ev := domain.InboundEvent{
		Text: "🎁 Bonus",
		Annotations: []domain.Annotation{
			{Offset: 3, Length: 5, Kind: domain.AnnotationTextLink, URL: "https://gift.example"},
		},
	}

	assert.Equal(t, "🎁 Bonus\nBonus: https://gift.example", Reconstruct(ev))
}

func TestReconstruct_AnnotationsAgainstCaption(t *testing.T) {
	ev := domain.InboundEvent{
		Caption: "Photo link",
		Annotations: []domain.Annotation{
			{Offset: 6, Length: 4, Kind: domain.AnnotationTextLink, URL: "https://p.example"},
		},
	}

	assert.Equal(t, "Photo link\nlink: https://p.example", Reconstruct(ev))
}
