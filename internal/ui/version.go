// Package ui implements the interactive terminal interface for roBa Writer.
//
// This package follows the Bubble Tea model pattern: a single Model routes
// keyboard input and background flashing events across the application
// screens (mode selection, live progress, step-failure decisions,
// completion). The flashing run itself executes in a background goroutine
// owned by the model and communicates exclusively through messages.
package ui

// Application metadata constants.
const (
	// AppName is the official name of the application
	AppName = "roBa Writer"

	// AppVersion follows semantic versioning (major.minor.patch)
	AppVersion = "1.2.0"

	// AppDesc is the tagline used in UI headers
	AppDesc = "Split Keyboard Firmware Flasher"
)

// GetFullVersionString returns the application name with version for display.
func GetFullVersionString() string {
	return AppName + " v" + AppVersion
}

// GetSubtitle returns a compact version string for UI footers.
func GetSubtitle() string {
	return "v" + AppVersion + " - " + AppDesc
}
