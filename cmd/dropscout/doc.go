// Package main hosts the dropscout command line.
//
// Architecture overview:
//   - run searches X for airdrop announcements, screens each post for scam phrasing and link policy, verifies
//     that the official site links back to the promoting account, scores the candidate and then publishes it,
//     holds it in the review queue or rejects it. A weekly digest and an optional sponsored placement are
//     handled before evaluation.
//   - approve publishes the highest-scored queue entries. reconcile retries publishes that were reserved but
//     never stamped with a root message id. serve exposes the review queue over HTTP.
//   - State lives in Postgres (or memory for local work). Every decision is appended to the metric log, logged
//     with zap and counted in Prometheus; batch commands push metrics to a Pushgateway on exit.
//
// Operational notes:
//   - dry_run defaults to true. Dry runs perform every state mutation a live run would, skip only the outbound
//     publish and hand the thread to the configured previewer.
//   - With no subcommand the mode key picks run or approve, so the legacy MODE variable keeps working.
//   - Configure through a YAML file (--config) and DROPSCOUT_* variables; a .env file is loaded when present.
package main
