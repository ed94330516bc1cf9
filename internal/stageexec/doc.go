// Package stageexec runs one workflow stage with time ceilings, status
// reporting, and advisory record updates around the handler contract.
package stageexec
