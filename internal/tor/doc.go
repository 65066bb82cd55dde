// Package tor provides Tor network connectivity for LeakHound.
//
// Leak sources live almost exclusively on .onion addresses, so every
// fetch in the pipeline can be routed through a Tor SOCKS5 proxy. The
// package provides three pieces:
//
//   - Client: a SOCKS5 dialer plus Tor-tuned HTTP clients
//   - Controller: a control-port client used to renew the circuit
//     identity (SIGNAL NEWNYM) between fetch retries
//   - EmbeddedTor: a tornago-managed embedded Tor daemon for
//     deployments without an external Tor installation
//
// The circuit identity is a process-wide shared resource: renewing it
// affects every in-flight fetch through the proxy. Renewal is therefore
// used as a blunt instrument between retries of a failing fetch, never
// per request.
//
// The package is designed to be used with dependency injection - create a
// Client and pass it to components that need Tor connectivity rather than
// using global state.
package tor
