package protostate

// internPool is a small hash-pool scoped to a single Reader that lets
// decoded strings with equal content share one instance. It is deliberately
// unbounded: the pool only lives as long as the Reader that owns it, so its
// size is bounded by the input being decoded, not by process lifetime.
type internPool struct {
	seen map[string]string
}

func newInternPool() *internPool {
	return &internPool{seen: map[string]string{}}
}

// Intern returns s itself the first time a given content is seen, and the
// previously interned string on every subsequent equal occurrence.
func (p *internPool) Intern(s string) string {
	if existing, ok := p.seen[s]; ok {
		return existing
	}
	p.seen[s] = s
	return s
}
