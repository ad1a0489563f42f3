// Package scheduler is the Scheduler Engine: the single writer of Task and
// Job rows. It composes a Store (package store), a Broker (package broker),
// and a task type Registry (package task) behind five public operations —
// ScheduleTask, CancelTask, RescheduleTask, MaintainTasks, and Run (which
// drives the default success/failure callbacks from broker completion
// events).
//
// # Concurrency model
//
// Intra-process concurrency exists through the callback handlers invoked
// as broker jobs settle — these race on Task rows across different Tasks,
// never the same one, since a Task always carries at most one non-terminal
// Job. MaintainTasks runs under its own mutex so an overlapping sweep never
// enqueues two replacement Jobs for the same orphaned Task.
//
// # Retry and recovery
//
// Retry and back-off are entirely the Engine's responsibility, not the
// broker's: every job is enqueued with the broker's own attempt accounting
// disabled (one attempt), and a failed job moves the owning Task through
// RECOVERY before a replacement Job is enqueued — or to a terminal FAILED
// once the retry cap or the task type's CanBeRetried gate says to stop.
package scheduler
