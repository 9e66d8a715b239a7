// Package websocket streams live bot activity events to diagnostic
// clients over WebSocket connections.
package websocket
