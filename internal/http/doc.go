// Package http provides HTTP handlers and middleware for the fitclub API.
//
// The router exposes the following endpoints:
//   - GET /events, POST /events, PUT /events/{id}, DELETE /events/{id}: event
//     management endpoints exchanging the `eventDTO` payload defined in
//     event_handler.go. Listings accept from, to, trainer_id and status query
//     parameters and return events enriched with trainer and client names.
//   - POST /events/{id}/status: drives the event state machine. Body:
//     {"status"}. Disallowed transitions are rejected with 409.
//   - GET /events/stats: aggregate schedule statistics, optionally bounded by
//     from and to query parameters.
//   - POST /bookings: resolves a trainer reference and books a session through
//     the event store. Body defined in booking_handler.go.
//   - GET /trainers, GET /clients, GET /products: read-only directory listings
//     consumed by synchronizing clients.
//
// Caller identity arrives in the X-User-ID and X-User-Role headers; resolving
// and authenticating those values is an upstream concern.
//
// Request/response DTOs live alongside their respective handlers so tests and
// documentation share the same ground truth.
package http
