// Package cli turns the adcanvas command line and environment into an
// app.Config. Usage problems are reported as an *ExitError carrying the
// process exit code.
package cli
