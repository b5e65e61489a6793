package tools

import (
	"context"
	"encoding/json"
	"time"

	"github.com/upb/hue-gateway/hue"
)

// Tool names
const (
	SetRoomLights   = "set_room_lights"
	SetLightState   = "set_light_state"
	GetLights       = "get_lights"
	GetRooms        = "get_rooms"
	GetServerStatus = "get_server_status"
)

// ServiceName identifies the gateway in status reports
const ServiceName = "hue-gateway"

// Bridge is the subset of the bridge client the tools need
type Bridge interface {
	Lights(ctx context.Context) (map[string]hue.Light, error)
	Rooms(ctx context.Context) (map[string]hue.Group, error)
	FindRoom(ctx context.Context, name string) (string, hue.Group, error)
	SetLightState(ctx context.Context, lightID string, state hue.LightState) ([]hue.Result, error)
	SetGroupAction(ctx context.Context, groupID string, action hue.LightState) ([]hue.Result, error)
}

// StatusInfo is the static part of the get_server_status report
type StatusInfo struct {
	BridgeAddress      string
	UsernameConfigured bool
	AuthRequired       bool
	AuthProvider       string
	// Now defaults to time.Now
	Now func() time.Time
}

// ServerStatus is the result of get_server_status
type ServerStatus struct {
	Status       string `json:"status"`
	Service      string `json:"service"`
	Timestamp    string `json:"timestamp"`
	BridgeIP     string `json:"hue_bridge_ip"`
	HueUsername  string `json:"hue_username"`
	AuthRequired bool   `json:"auth_required"`
	AuthProvider string `json:"auth_provider"`
}

var stateParams = []Parameter{
	{Name: "on", Type: "boolean", Description: "Turn the lights on or off"},
	{Name: "red", Type: "integer", Description: "Red channel, 0-255"},
	{Name: "green", Type: "integer", Description: "Green channel, 0-255"},
	{Name: "blue", Type: "integer", Description: "Blue channel, 0-255"},
}

// NewLightingTools builds the gateway's tool set on top of bridge
func NewLightingTools(bridge Bridge, info StatusInfo) []Tool {
	if info.Now == nil {
		info.Now = time.Now
	}

	return []Tool{
		&funcTool{
			name:        SetRoomLights,
			description: "Set all lights in a room to a given state (on/off, color). Use RGB values (0-255) for color.",
			params: append([]Parameter{
				{Name: "room", Type: "string", Description: "Room name, case insensitive", Required: true},
			}, stateParams...),
			fn: func(ctx context.Context, raw json.RawMessage) (interface{}, error) {
				var args SetRoomLightsArgs
				if err := decodeArgs(raw, &args); err != nil {
					return nil, err
				}
				groupID, _, err := bridge.FindRoom(ctx, args.Room)
				if err != nil {
					return nil, err
				}
				return bridge.SetGroupAction(ctx, groupID, args.State(hue.Bool(true)))
			},
		},
		&funcTool{
			name:        SetLightState,
			description: "Set a specific light to a given state by its ID. Use RGB values (0-255) for color.",
			params: append([]Parameter{
				{Name: "light_id", Type: "string", Description: "Numeric light id", Required: true},
			}, stateParams...),
			fn: func(ctx context.Context, raw json.RawMessage) (interface{}, error) {
				var args SetLightStateArgs
				if err := decodeArgs(raw, &args); err != nil {
					return nil, err
				}
				return bridge.SetLightState(ctx, args.LightID, args.State(nil))
			},
		},
		&funcTool{
			name:        GetLights,
			description: "Get all lights with their current states and names.",
			fn: func(ctx context.Context, raw json.RawMessage) (interface{}, error) {
				if err := decodeArgs(raw, &struct{}{}); err != nil {
					return nil, err
				}
				return bridge.Lights(ctx)
			},
		},
		&funcTool{
			name:        GetRooms,
			description: "Get all rooms (groups of type Room) with their light configurations.",
			fn: func(ctx context.Context, raw json.RawMessage) (interface{}, error) {
				if err := decodeArgs(raw, &struct{}{}); err != nil {
					return nil, err
				}
				return bridge.Rooms(ctx)
			},
		},
		&funcTool{
			name:        GetServerStatus,
			description: "Get the current status of the gateway.",
			fn: func(ctx context.Context, raw json.RawMessage) (interface{}, error) {
				if err := decodeArgs(raw, &struct{}{}); err != nil {
					return nil, err
				}
				return serverStatus(info), nil
			},
		},
	}
}

// RegisterLightingTools registers every lighting tool in r
func RegisterLightingTools(r *Registry, bridge Bridge, info StatusInfo) error {
	for _, t := range NewLightingTools(bridge, info) {
		if err := r.Register(t); err != nil {
			return err
		}
	}
	return nil
}

// serverStatus never echoes the bridge username, which is a credential
func serverStatus(info StatusInfo) ServerStatus {
	bridgeIP := info.BridgeAddress
	if bridgeIP == "" {
		bridgeIP = "not_set"
	}
	username := "not_set"
	if info.UsernameConfigured {
		username = "configured"
	}
	provider := info.AuthProvider
	if provider == "" {
		provider = "none"
	}
	return ServerStatus{
		Status:       "running",
		Service:      ServiceName,
		Timestamp:    info.Now().UTC().Format(time.RFC3339),
		BridgeIP:     bridgeIP,
		HueUsername:  username,
		AuthRequired: info.AuthRequired,
		AuthProvider: provider,
	}
}
