// Package workflow runs batches of independent recipes.
//
// A Manager takes jobs whose output directories are distinct, writes each
// recipe's files, runs its script and records every session transition in
// the store. Jobs run concurrently up to the configured parallelism; the
// stages of a single recipe always run in order inside its own script. One
// failing job does not cancel the others; failures are reported per job.
//
// Jobs files are YAML lists of scene manifests, weather files and points
// files; see LoadJobs.
package workflow
