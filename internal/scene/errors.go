package scene

import "errors"

var (
	// ErrSceneNotFound is returned when a scene ID does not exist.
	ErrSceneNotFound = errors.New("scene: not found")

	// ErrSceneExists is returned when creating a scene with an ID that
	// already exists.
	ErrSceneExists = errors.New("scene: already exists")

	// ErrInvalidScene is returned when a scene definition is missing
	// required fields.
	ErrInvalidScene = errors.New("scene: invalid")

	// ErrNoActions is returned when a scene carries no actions.
	ErrNoActions = errors.New("scene: no actions")

	// ErrInvalidAction is returned when an action is missing a device
	// or names an unknown command.
	ErrInvalidAction = errors.New("scene: invalid action")

	// ErrNoAssignment is returned when a button has no scene assigned.
	ErrNoAssignment = errors.New("scene: no assignment")
)
