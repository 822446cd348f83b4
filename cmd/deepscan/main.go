// Package main provides the entry point for the deepscan CLI.
//
// deepscan crawls websites starting from single page scans, records the
// pages it discovers on a shared website scan and queues them for scanning.
//
// Usage:
//
//	deepscan scan --id <scan-id> --url <page-url> --deep-scan --website-id <id>
//	deepscan worker
//	deepscan report --website-id <id>
//
// See --help for all available options.
package main

// main is the entry point for deepscan.
func main() {
	Execute()
}
