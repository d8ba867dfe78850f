package node

// Payload is the kind-specific data carried by a node. The set of
// implementations is closed: each kind has exactly one payload type.
type Payload interface {
	Kind() Kind
	clone() Payload
}

// ProductInputPayload is carried by the ProductInput node.
type ProductInputPayload struct {
	Input ProductInput `json:"input"`
}

// DemographicsPayload is carried by the Demographics node.
type DemographicsPayload struct {
	Raw       *Demographics          `json:"raw,omitempty"`
	Confirmed *ConfirmedDemographics `json:"confirmed,omitempty"`
}

// BrandStylePayload is carried by the BrandStyle node. Demographics is the
// snapshot attached when the stage was activated.
type BrandStylePayload struct {
	Demographics *ConfirmedDemographics `json:"demographics,omitempty"`
	Style        *BrandStyle            `json:"style,omitempty"`
}

// GeneratePayload holds the immutable inputs of one branch.
type GeneratePayload struct {
	Index        int                   `json:"index"`
	Demographics ConfirmedDemographics `json:"demographics"`
	Style        BrandStyle            `json:"style"`
	Creative     *Creative             `json:"creative,omitempty"`
}

// ImageResultPayload holds the creative produced for one branch together with
// the inputs it was generated from.
type ImageResultPayload struct {
	Index    int             `json:"index"`
	Creative Creative        `json:"creative"`
	Source   GeneratePayload `json:"source"`
}

// PreviewPayload is carried by a Preview node.
type PreviewPayload struct {
	BranchID string   `json:"branchId"`
	Creative Creative `json:"creative"`
}

func (ProductInputPayload) Kind() Kind { return KindProductInput }
func (DemographicsPayload) Kind() Kind { return KindDemographics }
func (BrandStylePayload) Kind() Kind   { return KindBrandStyle }
func (GeneratePayload) Kind() Kind     { return KindGenerate }
func (ImageResultPayload) Kind() Kind  { return KindImageResult }
func (PreviewPayload) Kind() Kind      { return KindPreview }

func (p ProductInputPayload) clone() Payload { return p }

func (p DemographicsPayload) clone() Payload {
	if p.Raw != nil {
		raw := p.Raw.Clone()
		p.Raw = &raw
	}
	if p.Confirmed != nil {
		confirmed := p.Confirmed.Clone()
		p.Confirmed = &confirmed
	}
	return p
}

func (p BrandStylePayload) clone() Payload {
	if p.Demographics != nil {
		d := p.Demographics.Clone()
		p.Demographics = &d
	}
	if p.Style != nil {
		s := p.Style.Clone()
		p.Style = &s
	}
	return p
}

func (p GeneratePayload) clone() Payload {
	return p.deepCopy()
}

func (p GeneratePayload) deepCopy() GeneratePayload {
	p.Demographics = p.Demographics.Clone()
	p.Style = p.Style.Clone()
	if p.Creative != nil {
		c := *p.Creative
		p.Creative = &c
	}
	return p
}

func (p ImageResultPayload) clone() Payload {
	p.Source = p.Source.deepCopy()
	return p
}

func (p PreviewPayload) clone() Payload { return p }

// CreativeOf extracts the creative of a branch node, whichever kind the
// branch was fanned out as.
func CreativeOf(p Payload) (Creative, bool) {
	switch v := p.(type) {
	case ImageResultPayload:
		return v.Creative, true
	case GeneratePayload:
		if v.Creative != nil {
			return *v.Creative, true
		}
	case PreviewPayload:
		return v.Creative, true
	}
	return Creative{}, false
}
