package hooking

// A list of hook poses for the hooks to apply to
var (
	HookPosTaskStart = &HookPos{Name: "HookPosTaskStart"}
	HookPosTaskTag   = &HookPos{Name: "HookPosTaskTag"}
	HookPosTaskStep  = &HookPos{Name: "HookPosTaskStep"}
	HookPosTaskEnd   = &HookPos{Name: "HookPosTaskEnd"}
)

// TaskStart is data that is passed to the hook when a task starts.
type TaskStart struct {
	ID       string
	ParentID string
	Kind     string
	What     string
	Where    string
}

// TaskTag is data attached to a task to provide more information about the
// task.
type TaskTag struct {
	TaskID string
	What   string
	Detail string
}

// TaskStep is data that is passed to the hook when a task takes a step.
type TaskStep struct {
	TaskID string
	StepID string
	Kind   string
	What   string
	Detail string
}

// TaskEnd is data that is passed to the hook when a task ends.
type TaskEnd struct {
	ID string
}

// Step is a recorded step of a task.
type Step struct {
	ID     string `json:"id"`
	Time   uint64 `json:"time"`
	Kind   string `json:"kind"`
	What   string `json:"what"`
	Detail string `json:"detail"`
}

// Tag is a recorded tag of a task.
type Tag struct {
	What   string `json:"what"`
	Detail string `json:"detail"`
}

// Task is the record of a task that a tracer keeps.
type Task struct {
	ID        string `json:"id"`
	ParentID  string `json:"parent_id"`
	Kind      string `json:"kind"`
	What      string `json:"what"`
	Where     string `json:"where"`
	StartTime uint64 `json:"start_time"`
	EndTime   uint64 `json:"end_time"`
	Steps     []Step `json:"steps"`
	Tags      []Tag  `json:"tags"`
}

// TaskFilter is a function that can filter interesting tasks. If this function
// returns true, the task is considered useful.
type TaskFilter func(t TaskStart) bool

// KindFilter accepts the tasks of the given kind only.
func KindFilter(kind string) TaskFilter {
	return func(t TaskStart) bool {
		return t.Kind == kind
	}
}

// A TimeTeller can tell the current tick.
type TimeTeller interface {
	Now() uint64
}
