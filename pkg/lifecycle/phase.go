package lifecycle

import "time"

// Deployment phases, in the order a scaling run goes through them.
const (
	PhaseCreation = "creation"
	PhaseScaleOut = "scale-out"
	PhaseScaleIn  = "scale-in"
)

// PhaseRecord times one convergence of a deployment to a replica target.
type PhaseRecord struct {
	Name      string
	Resource  string
	Target    int32
	StartedAt time.Time
	ReachedAt *time.Time
}

// Reach stamps the moment the target was observed. Later calls are ignored.
func (p *PhaseRecord) Reach(t time.Time) bool {
	if p.ReachedAt != nil {
		return false
	}
	p.ReachedAt = &t
	return true
}

// Duration is the time from the mutation to the observed convergence.
func (p *PhaseRecord) Duration() (time.Duration, bool) {
	if p.ReachedAt == nil {
		return 0, false
	}
	return p.ReachedAt.Sub(p.StartedAt), true
}
