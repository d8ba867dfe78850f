// Package app contains the core application logic. It wires configuration,
// sessions, the generative client and the HTTP and realtime servers into an
// App, and owns its lifecycle, decoupled from any specific entrypoint.
package app
