// Package external declares the boundaries to collaborators that live
// outside this module's scope: a graphical renderer, a command
// dispatcher, an HTTP debug server, a persistence layer, a process
// supervisor, and a history visualizer. Nothing here is implemented;
// the interfaces exist so the in-scope components (Scheduler, compiler
// artifact) can be wired to real implementations without depending on
// them directly.
package external

// Renderer draws a live view of a running simulation's environment.
type Renderer interface {
	RenderTick(tick uint64) error
}

// Dispatcher executes operator commands against a running simulation.
type Dispatcher interface {
	Dispatch(command string, args []string) (string, error)
}

// DebugServer exposes a ProgramArtifact and live organism/environment
// state to remote clients.
type DebugServer interface {
	ListenAndServe(addr string) error
}

// Persistence stores ticks and artifacts for later indexing or replay.
type Persistence interface {
	SaveTick(tick uint64, snapshot []byte) error
	LoadArtifact(programID string) ([]byte, error)
}

// Supervisor starts, stops, and health-checks simulation processes.
type Supervisor interface {
	Start(name string) error
	Stop(name string) error
	Status(name string) (string, error)
}

// Visualizer serves a browser-based view of simulation history.
type Visualizer interface {
	ServeHistory(addr string) error
}
