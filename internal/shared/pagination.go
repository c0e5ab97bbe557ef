package shared

// ListParams carries offset pagination for listing endpoints.
type ListParams struct {
	Skip  int
	Limit int
}

// Normalize clamps pagination to sane bounds.
func (p ListParams) Normalize() ListParams {
	if p.Skip < 0 {
		p.Skip = 0
	}
	if p.Limit <= 0 || p.Limit > 100 {
		p.Limit = 100
	}
	return p
}
