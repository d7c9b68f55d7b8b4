// Package lockfile snapshots resolved dependency graphs in a project.lock.json file.
//
// The lock file records, per target framework, every library the walk selected with
// the ranges its dependents asked for and the assemblies it contributes. Tools use
// it to see what a restore produced without walking again, and to review what
// changed between two restores.
//
// # Lock File Structure
//
//   - version: schema version (CurrentVersion)
//   - locked: when true, tools should treat the recorded versions as pins
//   - targets: framework -> "name/version" -> Entry
//   - libraries: "name/version" -> Library
//
// # Usage
//
// Write a lock file from resolved graphs:
//
//	lf := lockfile.FromGraphs(net45Graph, aspnet50Graph)
//	if err := lf.WriteFile(fs, lockfile.DefaultPath(projectDir)); err != nil {
//	    log.Fatal(err)
//	}
//
// Read it back:
//
//	lf, err := lockfile.ReadFile(fs, lockfile.DefaultPath(projectDir))
package lockfile
