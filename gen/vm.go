package gen

// VM is the shared registry of processes. It indexes processes and routes
// cross-process operations; it never interprets anything itself.
type VM interface {
	// Spawn creates a process from the manifest and inserts it into the
	// process table. There is no synchronization with the caller.
	Spawn(manifest ProcessManifest) (ProcessID, error)

	// Process returns the process with the given id.
	Process(id ProcessID) (Process, bool)
	// Processes returns a snapshot of the process table.
	Processes() map[ProcessID]Process
	// Remove reaps a process: it is dropped from the process table, the
	// name registry and every subscription.
	Remove(id ProcessID) error

	// Send enqueues a message into the mailbox of the process.
	Send(to ProcessID, ty Type, message Value) error

	// Publish delivers the message to every process subscribed to the type
	// at the moment the call starts.
	Publish(ty Type, message Value)
	Subscribe(id ProcessID, ty Type)
	Unsubscribe(id ProcessID, ty Type)
	Subscribers(ty Type) []ProcessID

	Register(name Name, id ProcessID)
	Unregister(name Name)
	Whereis(name Name) (ProcessID, bool)
	// NameRegistry returns a snapshot of the name registry.
	NameRegistry() map[Name]ProcessID

	Info() VMInfo
	Log() Log

	// LoggerAdd registers a log sink. Filter restricts the levels passed
	// to it, an empty filter passes everything.
	LoggerAdd(name string, logger LoggerBehavior, filter ...LogLevel) error
	LoggerDelete(name string)
}

// VMInfo is a snapshot of the VM.
type VMInfo struct {
	Version           Version
	Uptime            int64
	Processes         int
	ProcessesRunning  int
	ProcessesWaiting  int
	ProcessesReturned int
	ProcessesCrashed  int
	ProcessesHalted   int
	Names             int
	Subscriptions     int
	// UserTime and SystemTime are the CPU times of the OS process in
	// nanoseconds.
	UserTime   int64
	SystemTime int64
}
