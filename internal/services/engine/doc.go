// Package engine runs the Radiance command-line tools and the assembled batch
// scripts as blocking external processes.
//
// Output lines are streamed into the structured logger. A process that cannot
// be started is reported as services.ErrExecution; one that exits non-zero is
// reported as an *ExitError carrying the exit code and services.ErrExternalTool.
// There is no timeout: a hung engine process blocks the caller until ctx is
// cancelled.
package engine
