// Package main provides the entry point for the LeakHound CLI.
//
// LeakHound monitors leak-publication sites on the clearnet and the Tor
// network, stores deduplicated leak records, and raises keyword alerts.
//
// Usage:
//
//	leakhound serve
//	leakhound run [target-name...]
//	leakhound search <query>
//
// See --help for all available options.
package main

// main is the entry point for LeakHound.
func main() {
	Execute()
}
