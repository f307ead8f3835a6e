// Package cli implements the interactive terminal front end of the account
// client: a small REPL that prompts for input and drives the
// services.AccountService.
package cli
