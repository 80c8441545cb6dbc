// Package services provides the service registry for themesmithd.
//
// Build constructs the full graph from configuration: state store,
// scrubber, event publisher and pipeline engine with the complete agent
// roster registered. Use NewRegistry directly when tests need to supply
// their own instances.
package services
