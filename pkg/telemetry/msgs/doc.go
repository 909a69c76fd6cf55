// Package msgs wraps the telemetry wire messages so they can travel
// through the control loop and be encoded in a Typed envelope.
package msgs
