package scene

import (
	"time"

	"github.com/google/uuid"
)

// Action is one step of a scene: a device command with its parameters.
// Commands use the same names and params as the device command topic
// (turn_on, turn_off, press_button).
type Action struct {
	DeviceID string         `json:"device_id"`
	Command  string         `json:"command"`
	Params   map[string]any `json:"params,omitempty"`
}

// Scene is a named, ordered list of device actions.
type Scene struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Actions   []Action  `json:"actions"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Assignment maps a wall switch button to the scene it activates.
// One button drives at most one scene; reassigning overwrites.
type Assignment struct {
	DeviceID  string    `json:"device_id"`
	Button    int       `json:"button"`
	SceneID   string    `json:"scene_id"`
	CreatedAt time.Time `json:"created_at"`
}

// GenerateID returns a new unique scene identifier.
func GenerateID() string {
	return uuid.NewString()
}

// validCommands are the commands a scene action may carry. They mirror
// the bridge's command dispatcher.
var validCommands = map[string]bool{
	"turn_on":      true,
	"turn_off":     true,
	"press_button": true,
}

// Validate checks a scene definition before persistence.
func Validate(s *Scene) error {
	if s == nil {
		return ErrInvalidScene
	}
	if s.Name == "" {
		return ErrInvalidScene
	}
	if len(s.Actions) == 0 {
		return ErrNoActions
	}
	for _, action := range s.Actions {
		if action.DeviceID == "" {
			return ErrInvalidAction
		}
		if !validCommands[action.Command] {
			return ErrInvalidAction
		}
	}
	return nil
}
