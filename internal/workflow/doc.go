// Package workflow defines the Temporal workflow that grades a submission.
//
// Workflow code is deterministic: oracle calls, storage and event emission
// all happen in activities, and time comes from workflow.Now. Questions are
// evaluated one activity at a time so the oracle sees the same sequential
// load as a direct evaluation.
package workflow
