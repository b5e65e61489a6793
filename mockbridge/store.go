// Package mockbridge simulates a lighting bridge in memory for local development.
package mockbridge

import (
	"sort"
	"strconv"
	"sync"

	"github.com/upb/hue-gateway/hue"
)

// Store holds the simulated lights and groups
type Store struct {
	mu     sync.RWMutex
	lights map[string]hue.Light
	groups map[string]hue.Group
}

// NewStore creates a store seeded with three rooms of four lights each
func NewStore() *Store {
	s := &Store{
		lights: make(map[string]hue.Light),
		groups: make(map[string]hue.Group),
	}
	s.seed()
	return s
}

func (s *Store) seed() {
	type seedLight struct {
		name          string
		on            bool
		hue, bri, sat int
	}
	lights := []seedLight{
		{"Kitchen Overhead 1", true, 45000, 180, 180},
		{"Kitchen Overhead 2", true, 45000, 180, 180},
		{"Kitchen Floor Lamp", false, 10000, 120, 100},
		{"Kitchen Table Lamp", true, 50000, 200, 150},
		{"Living Room Overhead", true, 10000, 254, 200},
		{"Living Room Floor Lamp", false, 20000, 180, 180},
		{"Living Room Table Lamp", true, 30000, 150, 120},
		{"Living Room Wall Sconce", false, 40000, 100, 100},
		{"Bedroom Overhead", true, 30000, 200, 180},
		{"Bedroom Floor Lamp", false, 35000, 120, 110},
		{"Bedroom Table Lamp", true, 25000, 180, 130},
		{"Bedroom Wall Sconce", false, 15000, 90, 90},
	}
	for i, l := range lights {
		s.lights[strconv.Itoa(i+1)] = hue.Light{
			Name:    l.name,
			Type:    "Extended color light",
			ModelID: "LCT016",
			State: hue.LightState{
				On:  hue.Bool(l.on),
				Hue: hue.Int(l.hue),
				Bri: hue.Int(l.bri),
				Sat: hue.Int(l.sat),
			},
		}
	}

	rooms := []struct {
		name, class   string
		hue, bri, sat int
	}{
		{"Kitchen", "Kitchen", 45000, 180, 180},
		{"Living Room", "Living room", 10000, 254, 200},
		{"Bedroom", "Bedroom", 30000, 200, 180},
	}
	for i, r := range rooms {
		members := make([]string, 0, 4)
		for j := 1; j <= 4; j++ {
			members = append(members, strconv.Itoa(i*4+j))
		}
		s.groups[strconv.Itoa(i+1)] = hue.Group{
			Name:   r.name,
			Type:   hue.GroupTypeRoom,
			Class:  r.class,
			Lights: members,
			Action: hue.LightState{
				On:  hue.Bool(true),
				Hue: hue.Int(r.hue),
				Bri: hue.Int(r.bri),
				Sat: hue.Int(r.sat),
			},
		}
	}
}

// Lights returns a snapshot of every light
func (s *Store) Lights() map[string]hue.Light {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]hue.Light, len(s.lights))
	for id, l := range s.lights {
		out[id] = copyLight(l)
	}
	return out
}

// Light returns one light
func (s *Store) Light(id string) (hue.Light, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	l, ok := s.lights[id]
	return copyLight(l), ok
}

// SetLightState merges state into a light. It reports false for an unknown id.
func (s *Store) SetLightState(id string, state hue.LightState) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.lights[id]
	if !ok {
		return false
	}
	l.State.Merge(state)
	s.lights[id] = l
	return true
}

// Groups returns a snapshot of every group
func (s *Store) Groups() map[string]hue.Group {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]hue.Group, len(s.groups))
	for id, g := range s.groups {
		out[id] = copyGroup(g)
	}
	return out
}

// Group returns one group
func (s *Store) Group(id string) (hue.Group, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	g, ok := s.groups[id]
	return copyGroup(g), ok
}

// SetGroupAction merges action into a group and into each of its member lights
func (s *Store) SetGroupAction(id string, action hue.LightState) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.groups[id]
	if !ok {
		return false
	}
	g.Action.Merge(action)
	s.groups[id] = g

	for _, lightID := range g.Lights {
		if l, ok := s.lights[lightID]; ok {
			l.State.Merge(action)
			s.lights[lightID] = l
		}
	}
	return true
}

// GroupLights returns the lights of each group, keyed by group name
func (s *Store) GroupLights() map[string][]hue.Light {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string][]hue.Light, len(s.groups))
	for _, g := range s.groups {
		ids := append([]string(nil), g.Lights...)
		sort.Slice(ids, func(i, j int) bool { return lightIDLess(ids[i], ids[j]) })

		members := make([]hue.Light, 0, len(ids))
		for _, id := range ids {
			if l, ok := s.lights[id]; ok {
				members = append(members, copyLight(l))
			}
		}
		out[g.Name] = members
	}
	return out
}

func lightIDLess(a, b string) bool {
	ai, errA := strconv.Atoi(a)
	bi, errB := strconv.Atoi(b)
	if errA == nil && errB == nil {
		return ai < bi
	}
	return a < b
}

func copyLight(l hue.Light) hue.Light {
	var st hue.LightState
	st.Merge(l.State)
	l.State = st
	return l
}

func copyGroup(g hue.Group) hue.Group {
	var action hue.LightState
	action.Merge(g.Action)
	g.Action = action
	g.Lights = append([]string(nil), g.Lights...)
	return g
}
