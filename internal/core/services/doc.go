// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters): the sync cycle, the change
// detector, the continuous runner and the status tracker.
//
// Services are pure Go with no CGO or external dependencies.
package services
