// Package scene implements named lighting scenes and their activation.
//
// A scene is an ordered list of device actions (turn_on, turn_off,
// press_button) stored in SQLite. Scenes activate in three ways: a
// REST call, an MQTT command, or a wall switch button press that a
// stored assignment maps to the scene. The Engine executes actions
// through the bridge's command dispatcher and publishes an activation
// event when done.
package scene
