package docstore

type projection struct {
	fields  map[string]bool
	include bool
	keepID  bool
}

func newProjection(spec map[string]bool) (*projection, error) {
	p := &projection{keepID: true}
	if len(spec) == 0 {
		return p, nil
	}
	p.fields = make(map[string]bool, len(spec))
	mode := -1
	for field, keep := range spec {
		if field == IDField {
			p.keepID = keep
			continue
		}
		m := 0
		if keep {
			m = 1
		}
		if mode >= 0 && mode != m {
			return nil, ErrProjection
		}
		mode = m
		p.fields[field] = true
	}
	p.include = mode == 1
	return p, nil
}

func (p *projection) apply(doc Document) Document {
	if p.fields == nil && p.keepID {
		return doc
	}
	out := Document{}
	for k, v := range doc {
		if k == IDField {
			if p.keepID {
				out[k] = v
			}
			continue
		}
		if p.include == p.fields[k] {
			out[k] = v
		}
	}
	return out
}
