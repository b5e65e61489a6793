package tools

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/upb/hue-gateway/color"
	"github.com/upb/hue-gateway/hue"
	"github.com/upb/hue-gateway/services"
	"github.com/upb/hue-gateway/utils"
)

// Switch is an on/off flag. It accepts a JSON bool or a string, where
// "true", "1", "yes" and "on" mean on and any other string means off.
type Switch bool

// UnmarshalJSON implements json.Unmarshaler
func (s *Switch) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*s = Switch(b)
		return nil
	}
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return fmt.Errorf("on must be a boolean or a string")
	}
	*s = Switch(ParseSwitch(str))
	return nil
}

// ParseSwitch reports whether str means on
func ParseSwitch(str string) bool {
	switch strings.ToLower(strings.TrimSpace(str)) {
	case "true", "1", "yes", "on":
		return true
	}
	return false
}

// Channel is one 8-bit colour component. It accepts a JSON number or a
// numeric string.
type Channel int

// UnmarshalJSON implements json.Unmarshaler
func (c *Channel) UnmarshalJSON(data []byte) error {
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		*c = Channel(n)
		return nil
	}
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return fmt.Errorf("colour channel must be an integer")
	}
	n, err := strconv.Atoi(strings.TrimSpace(str))
	if err != nil {
		return fmt.Errorf("colour channel %q is not an integer", str)
	}
	*c = Channel(n)
	return nil
}

// StateArgs are the power and colour arguments shared by the set tools
type StateArgs struct {
	On    *Switch  `json:"on,omitempty"`
	Red   *Channel `json:"red,omitempty" validate:"omitempty,gte=0,lte=255"`
	Green *Channel `json:"green,omitempty" validate:"omitempty,gte=0,lte=255"`
	Blue  *Channel `json:"blue,omitempty" validate:"omitempty,gte=0,lte=255"`
}

// rgb returns the requested colour when all three channels are set
func (a StateArgs) rgb() (color.RGB, bool) {
	if a.Red == nil || a.Green == nil || a.Blue == nil {
		return color.RGB{}, false
	}
	return color.RGB{R: int(*a.Red), G: int(*a.Green), B: int(*a.Blue)}, true
}

// State builds the light state to send. A colour change powers the light on
// unless on says otherwise. Without a colour, an unset on yields defaultOn.
func (a StateArgs) State(defaultOn *bool) hue.LightState {
	if c, ok := a.rgb(); ok {
		on := true
		if a.On != nil {
			on = bool(*a.On)
		}
		return color.StateFromRGB(c, on)
	}
	if a.On != nil {
		return hue.LightState{On: hue.Bool(bool(*a.On))}
	}
	if defaultOn != nil {
		return hue.LightState{On: hue.Bool(*defaultOn)}
	}
	return hue.LightState{}
}

// SetRoomLightsArgs are the arguments of set_room_lights
type SetRoomLightsArgs struct {
	Room string `json:"room" validate:"required"`
	StateArgs
}

// SetLightStateArgs are the arguments of set_light_state
type SetLightStateArgs struct {
	LightID string `json:"light_id" validate:"required,numeric"`
	StateArgs
}

// decodeArgs strictly decodes args into dst and validates it. Empty args
// decode as an empty object.
func decodeArgs(args json.RawMessage, dst interface{}) error {
	trimmed := bytes.TrimSpace(args)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		trimmed = []byte("{}")
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return services.ErrInvalidArguments.Wrap(err)
	}

	if err := utils.ValidateStruct(dst); err != nil {
		domainErr := services.ErrInvalidArguments.Wrap(err)
		for field, msg := range utils.GetValidationFields(err) {
			domainErr.WithDetail(field, msg)
		}
		return domainErr
	}
	return nil
}
