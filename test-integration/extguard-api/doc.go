// Package integration provides end-to-end tests for the extguard API server.
// They run the full application against a fake upstream that serves list
// files, covering bootstrap, refresh, source management and classification.
package integration
