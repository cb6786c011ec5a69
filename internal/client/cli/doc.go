// Package cli implements the interactive terminal front end of the authdesk
// client: a small REPL over the auth orchestrator with prompt helpers for
// text and no-echo password input.
package cli
