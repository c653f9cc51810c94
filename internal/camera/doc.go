// Package camera models the platform's live video capability.
//
// A Device grants a Stream after user consent; a Stream owns one or more
// Tracks, and the device is only released once every Track has been stopped.
// Callers must treat a Stream as an exclusive resource: open it once, never
// share it, and call StopAll on every exit path.
//
// # Devices
//
// Two devices ship with the package:
//   - TestPattern: a synthetic camera that renders colour bars with sensor
//     noise. It counts live tracks so callers can verify release.
//   - Denied: a device that always refuses consent, for hosts without a camera.
//
// Real hardware backends implement Device in their own packages.
package camera
