// Package harness runs end-to-end scenarios through the real pipeline.
//
// A scenario describes the denylists, the bot identity, previously handled
// identifiers, how the fake replier answers, and the events the feed
// delivers. The harness wires a pipeline.Driver around those inputs with an
// in-memory dedup log and journal, runs it until every event has been
// handled, then evaluates the scenario's assertions.
//
// # Scenario Format
//
//	name: reply_and_record
//	description: "An eligible comment is replied to and recorded"
//	bot: replyguardbot
//	classifier: word
//	denylist:
//	  origins: [testsub]
//	  terms: [slur1]
//	dedup: []
//	replier:
//	  default: ok
//	  overrides: { c2: forbidden }
//	events:
//	  - { id: c1, origin: other, author: alice, body: "this is a slur1 example" }
//	assertions:
//	  - { type: replied, event: c1 }
//	  - { type: dedup_contains, event: c1 }
//	  - { type: classifier_calls, count: 1 }
//
// An event without an author models a deleted account.
//
// # Assertion Types
//
//   - replied / not_replied: the replier accepted (or never accepted) a reply
//     for the event; replied may also pin the exact message
//   - dedup_contains / dedup_lacks: the durable log does or does not hold the id
//   - verdict: the prefilter reason for the nth delivery of an event
//   - result: the action result for the nth delivery of an event
//   - classifier_calls / reply_count: exact counts
//
// Runs are deterministic: fixed run id, logical sequence numbers, and a
// fixed journal clock, so traces can be compared against golden files.
package harness
