package domain

// Clone helpers return copies that share no slices or maps with the
// receiver, so stores can hand records out without exposing their state.

func (s SubCategory) Clone() SubCategory {
	out := s
	out.SpecificationFields = make([]SpecificationField, len(s.SpecificationFields))
	for i, f := range s.SpecificationFields {
		out.SpecificationFields[i] = f.Clone()
	}
	return out
}

func (f SpecificationField) Clone() SpecificationField {
	out := f
	if f.Options != nil {
		out.Options = append([]string(nil), f.Options...)
	}
	return out
}

func (p Product) Clone() Product {
	out := p
	out.Images = append([]Image(nil), p.Images...)
	if out.Images == nil {
		out.Images = []Image{}
	}
	out.Specifications = make(map[string]any, len(p.Specifications))
	for k, v := range p.Specifications {
		out.Specifications[k] = cloneValue(v)
	}
	out.Documentation = p.Documentation.Clone()
	return out
}

// cloneValue deep-copies the JSON-shaped values a specification may hold.
func cloneValue(v any) any {
	switch v := v.(type) {
	case []any:
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = cloneValue(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, e := range v {
			out[k] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}

func (d Documentation) Clone() Documentation {
	out := d
	if d.TechnicalSheet != nil {
		ts := *d.TechnicalSheet
		out.TechnicalSheet = &ts
	}
	if d.Certifications != nil {
		out.Certifications = append([]Document(nil), d.Certifications...)
	}
	if d.Instructions != nil {
		out.Instructions = append([]Document(nil), d.Instructions...)
	}
	return out
}
