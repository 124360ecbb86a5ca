// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// The per-record pipeline is built leaf-first:
//
//   - FormatCurrency: Indian-grouped INR amounts
//   - SectionResolver: Conditional SDR/comments/bonus sections
//   - Planner: One SubstitutionPlan per record
//   - Renderer: Applies a plan to a fresh copy of the template
//   - BatchOrchestrator: Validates, renders in parallel, packages and hands off deliveries
//   - DeliveryQueue: Background worker pool in front of a Sender
package services
