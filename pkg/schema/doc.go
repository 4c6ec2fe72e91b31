// Package schema loads and validates question graphs.
//
// A schema document is JSON or YAML:
//
//	version: "1.0"
//	intro:
//	  firstQuestionId: hair_loss_location
//	questions:
//	  - id: hair_loss_location
//	    prompt: Where are you noticing hair loss?
//	    type: single_choice
//	    options:
//	      - {id: crown, label: Crown}
//	      - {id: hairline, label: Hairline}
//	    next: {default: consultation_end}
//
// Load reports every failure. LoadOrEmpty never fails: a missing or malformed
// document degrades to an empty schema, which the conversation answers with a
// static greeting.
//
// Validate checks graph integrity (duplicate ids, dangling next references,
// choice questions without options) and returns an AggregateError listing
// every problem found. Unreachable lists questions no path from the entry visits.
package schema
