// Package service contains the application-specific use cases and business
// logic. It orchestrates interactions between domain objects and repositories
// (defined in internal/store) to fulfill application features.
//
// The service layer sits between the HTTP handlers in internal/api and the
// store implementations in internal/platform. It owns the business rules
// that span the two: trimming and validating task input, hiding soft-deleted
// tasks from default reads, and combining listing with counting to produce
// pagination metadata.
//
// Services receive their dependencies through constructor injection and
// depend only on domain entities and store interfaces, never on a specific
// persistence implementation.
package service
