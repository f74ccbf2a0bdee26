package common

// Method is a JSON-RPC method exposed by a playing stream.
type Method string

const (
	METHOD_GET_VERSION      Method = "system.getVersion"
	METHOD_STATUS           Method = "stream.status"
	METHOD_FRAMES           Method = "stream.frames"
	METHOD_MARK_STYLE_DIRTY Method = "stream.markStyleDirty"
)

// Notification is a server-pushed JSON-RPC notification.
type Notification string

const (
	NOTIFY_FRAME_CHANGED Notification = "stream.frameChanged"
	NOTIFY_FRAME_FAILED  Notification = "stream.frameFailed"
)

const (
	// DefaultRPCListen is the default listen address for the control endpoint.
	DefaultRPCListen = "127.0.0.1:7373"
	// DefaultTickRate is the default number of ticks per wall-clock second.
	DefaultTickRate = 60
	// DefaultMemoryBudgetMB is the advisory device memory budget.
	DefaultMemoryBudgetMB = 256
)
