package hue

import (
	"encoding/json"
	"fmt"
)

// LightState is the mutable state of a light or the action of a group.
// Nil fields are left unchanged by the bridge.
type LightState struct {
	On  *bool `json:"on,omitempty"`
	Bri *int  `json:"bri,omitempty"`
	Hue *int  `json:"hue,omitempty"`
	Sat *int  `json:"sat,omitempty"`
}

// Merge copies the non-nil fields of u into s
func (s *LightState) Merge(u LightState) {
	if u.On != nil {
		v := *u.On
		s.On = &v
	}
	if u.Bri != nil {
		v := *u.Bri
		s.Bri = &v
	}
	if u.Hue != nil {
		v := *u.Hue
		s.Hue = &v
	}
	if u.Sat != nil {
		v := *u.Sat
		s.Sat = &v
	}
}

// IsEmpty reports whether no field is set
func (s LightState) IsEmpty() bool {
	return s.On == nil && s.Bri == nil && s.Hue == nil && s.Sat == nil
}

// Light is a single bulb as reported by the bridge
type Light struct {
	Name    string     `json:"name"`
	Type    string     `json:"type,omitempty"`
	ModelID string     `json:"modelid,omitempty"`
	State   LightState `json:"state"`
}

// Group is a set of lights. Rooms are groups with Type "Room".
type Group struct {
	Name   string     `json:"name"`
	Type   string     `json:"type"`
	Class  string     `json:"class,omitempty"`
	Lights []string   `json:"lights"`
	Action LightState `json:"action"`
}

// GroupTypeRoom marks a group as a room
const GroupTypeRoom = "Room"

// IsRoom reports whether the group is a room
func (g Group) IsRoom() bool {
	return g.Type == GroupTypeRoom
}

// Result is one entry of the bridge's response to a state change
type Result struct {
	Success json.RawMessage `json:"success,omitempty"`
	Error   *APIError       `json:"error,omitempty"`
}

// APIError is an error entry returned by the bridge
type APIError struct {
	Type        int    `json:"type,omitempty"`
	Address     string `json:"address,omitempty"`
	Description string `json:"description"`
}

// Bridge error types
const (
	ErrorTypeUnauthorized     = 1
	ErrorTypeNotAvailable     = 3
	ErrorTypeInvalidParameter = 7
)

func (e *APIError) Error() string {
	if e.Address != "" {
		return fmt.Sprintf("bridge error %d at %s: %s", e.Type, e.Address, e.Description)
	}
	return fmt.Sprintf("bridge error %d: %s", e.Type, e.Description)
}

// UnmarshalJSON accepts both the structured form and a bare string
func (e *APIError) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		e.Description = s
		return nil
	}
	type plain APIError
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*e = APIError(p)
	return nil
}

// Bool returns a pointer to v
func Bool(v bool) *bool { return &v }

// Int returns a pointer to v
func Int(v int) *int { return &v }
