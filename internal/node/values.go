package node

import "slices"

// AgeRange is an age bracket where either bound may be absent, meaning the
// bracket is open-ended on that side.
type AgeRange struct {
	Min *int `json:"min" validate:"omitempty,gte=0,lte=120"`
	Max *int `json:"max" validate:"omitempty,gte=0,lte=120"`
}

func (r AgeRange) clone() AgeRange {
	return AgeRange{Min: cloneInt(r.Min), Max: cloneInt(r.Max)}
}

// Bounded is a small helper to build a closed or half-open range.
func Bounded(minAge, maxAge *int) AgeRange {
	return AgeRange{Min: cloneInt(minAge), Max: cloneInt(maxAge)}
}

// Age returns a pointer to v, for use with AgeRange literals.
func Age(v int) *int { return &v }

func cloneInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// Demographics is the raw inference result received from the demographics
// service.
type Demographics struct {
	Gender   string   `json:"gender" validate:"required"`
	AgeRange AgeRange `json:"age_range"`
	Language []string `json:"language,omitempty"`
	Location []string `json:"location,omitempty"`
}

// Clone returns a deep copy.
func (d Demographics) Clone() Demographics {
	return Demographics{
		Gender:   d.Gender,
		AgeRange: d.AgeRange.clone(),
		Language: slices.Clone(d.Language),
		Location: slices.Clone(d.Location),
	}
}

// ConfirmedDemographics is the user-edited form of Demographics that is
// threaded forward through the pipeline.
type ConfirmedDemographics struct {
	Gender   string   `json:"gender" validate:"required"`
	AgeRange AgeRange `json:"age_range"`
	Language []string `json:"language,omitempty"`
	Location []string `json:"location,omitempty"`
}

// Clone returns a deep copy.
func (c ConfirmedDemographics) Clone() ConfirmedDemographics {
	return ConfirmedDemographics(Demographics(c).Clone())
}

// BrandStyle is the confirmed visual identity used for creative generation.
type BrandStyle struct {
	Colors             []string `json:"colors" validate:"required,min=1,dive,hexcolor"`
	Mood               string   `json:"mood" validate:"required"`
	FontStyle          string   `json:"font_style,omitempty"`
	Slogan             string   `json:"slogan,omitempty"`
	ProductDescription string   `json:"product_description,omitempty"`
}

// Clone returns a deep copy.
func (b BrandStyle) Clone() BrandStyle {
	c := b
	c.Colors = slices.Clone(b.Colors)
	return c
}

// Creative is one generated ad image. ImageRef is opaque to the canvas.
type Creative struct {
	ImageRef      string `json:"imageRef"`
	TextPlacement string `json:"textPlacement,omitempty"`
}

// ProductInput is what the user submits to start a session.
type ProductInput struct {
	ProductURL   string `json:"productUrl" validate:"required,url"`
	IntentPrompt string `json:"intentPrompt"`
}
