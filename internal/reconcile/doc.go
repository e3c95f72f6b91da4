/*
Package reconcile synchronizes a directory's groups and memberships with a
snapshot.

A run is strictly sequential and additive:

	Load -> Verify(all groups) -> Materialize(absent) -> Populate(present) -> Report

In dry-run mode Materialize and Populate are skipped and the report lists
the intended memberships instead of the directives issued. Nothing is ever
removed from the directory.

Only three conditions stop a run: a snapshot that fails to load, a snapshot
without a directory ID, and a group lookup that fails for any reason other
than "not found". Creation and membership failures are recorded in the
RunResult and the run continues.
*/
package reconcile
