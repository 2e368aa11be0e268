// Package service contains the application-specific use cases. Its Lab type
// owns the learner's session state (current structure, quiz attempt, chat
// history, study material) and coordinates the archive, curriculum, quiz,
// reaction and stats components around the content oracle.
//
// Key responsibilities:
//
// 1. Operation guards:
//   - At most one oracle call per operation family is in flight
//   - Responses for superseded requests are discarded, never applied
//
// 2. All-or-nothing updates:
//   - A failed operation leaves every piece of state exactly as it was
//
// 3. Event wiring:
//   - Quiz completion, module unlocks, reactions and searches reach the
//     stats aggregator and curriculum progression through an in-memory
//     event emitter
package service
