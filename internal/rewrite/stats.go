package rewrite

// Counts tallies the references of one kind.
type Counts struct {
	Remapped      int `yaml:"remapped"`
	PassedThrough int `yaml:"passed_through"`
}

// Stats tallies the references seen by one Rewrite call.
type Stats struct {
	ID  Counts `yaml:"id"`
	GID Counts `yaml:"gid"`
}

func (s *Stats) counts(k Kind) *Counts {
	if k == KindGID {
		return &s.GID
	}
	return &s.ID
}

// Add accumulates o into s.
func (s *Stats) Add(o Stats) {
	s.ID.Remapped += o.ID.Remapped
	s.ID.PassedThrough += o.ID.PassedThrough
	s.GID.Remapped += o.GID.Remapped
	s.GID.PassedThrough += o.GID.PassedThrough
}

// Remapped returns the number of rewritten references of both kinds.
func (s Stats) Remapped() int { return s.ID.Remapped + s.GID.Remapped }

// PassedThrough returns the number of references left untouched.
func (s Stats) PassedThrough() int { return s.ID.PassedThrough + s.GID.PassedThrough }

// Matched returns the number of references recognised.
func (s Stats) Matched() int { return s.Remapped() + s.PassedThrough() }
