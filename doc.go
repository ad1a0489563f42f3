// Package grimoire orchestrates the two process lifecycles this module's
// components compose into: SchedulerApp runs the Scheduler Engine (Task
// Registry + Task Store + Work Broker Adapter) and blocks serving its
// event-driven callback loop plus the periodic reconciliation sweep;
// ConsumerApp runs the supervised Consumer Pool draining the event stream
// into a Sink. Both follow the same construction and shutdown shape: build
// with functional options, Run blocks until a SIGINT/SIGTERM or a
// programmatic Stop, and shutdown hooks close owned connections in order.
package grimoire
