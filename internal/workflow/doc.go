// Package workflow runs the background processing loop: it claims uploaded
// previews, dispatches them through the analysis stage, keeps heartbeats
// fresh while a stage runs, and performs periodic maintenance (stale
// heartbeat reclamation and tombstone pruning).
package workflow
