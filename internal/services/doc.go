// Package services holds the cross-cutting error taxonomy and context
// annotations shared by stage handlers and external collaborators.
package services
