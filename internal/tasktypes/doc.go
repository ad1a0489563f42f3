// Package tasktypes provides the task-type plug-ins wired into the
// scheduler's registry at process start: RepoFetch (a git-datasource-shaped
// recurring or burst fetch job, resumable via a since-timestamp checkpoint)
// and Identity (a sortinghat-shaped merge/unify/affiliate job). Both are
// registered under their own Registry tag and exercise the full
// task.Descriptor contract end to end.
package tasktypes
