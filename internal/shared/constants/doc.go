// Package constants centralizes defaults shared across the CLI.
//
// File permissions, HTTP budgets and body limits live here so cmd/ and
// internal/ can reference them without introducing import cycles.
package constants
