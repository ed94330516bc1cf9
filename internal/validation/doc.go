// Package validation implements the workflow stage that proves an ingested
// study file is readable before reconstruction begins.
package validation
