// Package services provides the shared error taxonomy and context plumbing
// used across pipeline stages and external service clients.
//
// Errors are classified with sentinel markers so callers can branch on
// errors.Is without inspecting message text. External-service failures are
// expected and absorbed at the call site; validation and transition errors
// surface to the caller as typed results.
package services
