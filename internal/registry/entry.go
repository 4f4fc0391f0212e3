package registry

import "sync"

// Availability is the lifecycle state of a service entry, distinct from the
// raw healthy flag: a freshly registered service is healthy but stays
// STARTING until its first successful probe promotes it.
type Availability int

const (
	Starting Availability = iota
	Available
	Down
)

func (a Availability) String() string {
	switch a {
	case Starting:
		return "STARTING"
	case Available:
		return "AVAILABLE"
	case Down:
		return "DOWN"
	default:
		return "UNKNOWN"
	}
}

// Service is the per-name record owned by the Registry. The name and URL
// are immutable after creation; everything else is guarded by the entry's
// mutex so concurrent readers never observe a half-applied transition.
type Service struct {
	mutex           sync.Mutex
	name            string
	url             string
	healthy         bool
	availability    Availability
	assigned        bool
	assignedService string
}

// newService creates an entry in its initial state: healthy, STARTING,
// unassigned.
func newService(name, url string) *Service {
	return &Service{
		name:         name,
		url:          url,
		healthy:      true,
		availability: Starting,
	}
}

func (s *Service) Name() string {
	return s.name
}

func (s *Service) URL() string {
	return s.url
}

func (s *Service) IsHealthy() bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.healthy
}

// SetHealthy updates the health flag alone, leaving availability as-is.
// Returns true if the value changed.
func (s *Service) SetHealthy(healthy bool) (changed bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.healthy == healthy {
		return false
	}

	s.healthy = healthy
	return true
}

func (s *Service) Availability() Availability {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.availability
}

func (s *Service) SetAvailability(availability Availability) {
	s.mutex.Lock()
	s.availability = availability
	s.mutex.Unlock()
}

// Transition updates the health flag and availability together under one
// lock. Returns true if either value changed.
func (s *Service) Transition(healthy bool, availability Availability) (changed bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.healthy == healthy && s.availability == availability {
		return false
	}

	s.healthy = healthy
	s.availability = availability
	return true
}

// markDownIfAvailable demotes the entry only when it is currently healthy
// and AVAILABLE; anything else is a no-op. Returns whether it demoted.
func (s *Service) markDownIfAvailable() bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if !s.healthy || s.availability != Available {
		return false
	}

	s.healthy = false
	s.availability = Down
	return true
}

// Assignment returns the manual failover target, if any.
func (s *Service) Assignment() (target string, assigned bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.assignedService, s.assigned
}

// Assign redirects lookups for this entry to target. The redirect is a
// lookup by name, never a reference to the target entry itself.
func (s *Service) Assign(target string) {
	s.mutex.Lock()
	s.assigned = true
	s.assignedService = target
	s.mutex.Unlock()
}
