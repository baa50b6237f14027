package hooking

import (
	"fmt"
	"io"
	"sort"
	"sync"
)

// PendingTask is a task that has started but not yet finished.
type PendingTask struct {
	ID        string `json:"id"`
	ParentID  string `json:"parent_id"`
	Kind      string `json:"kind"`
	What      string `json:"what"`
	Where     string `json:"where"`
	StartTime uint64 `json:"start_time"`
	Hops      int    `json:"hops"`
}

// PendingTracer keeps the tasks that are still in flight. A step moves the
// task to the location named by the step detail.
type PendingTracer struct {
	timeTeller   TimeTeller
	lock         sync.Mutex
	tracingTasks map[string]*PendingTask
}

// NewPendingTracer creates a new PendingTracer.
func NewPendingTracer(timeTeller TimeTeller) *PendingTracer {
	return &PendingTracer{
		timeTeller:   timeTeller,
		tracingTasks: make(map[string]*PendingTask),
	}
}

// Func follows the tasks.
func (t *PendingTracer) Func(ctx HookCtx) {
	switch ctx.Pos {
	case HookPosTaskStart:
		t.StartTask(ctx.Item.(TaskStart))
	case HookPosTaskStep:
		t.StepTask(ctx.Item.(TaskStep))
	case HookPosTaskEnd:
		t.EndTask(ctx.Item.(TaskEnd))
	}
}

// StartTask records a new pending task.
func (t *PendingTracer) StartTask(taskStart TaskStart) {
	t.lock.Lock()
	defer t.lock.Unlock()

	t.tracingTasks[taskStart.ID] = &PendingTask{
		ID:        taskStart.ID,
		ParentID:  taskStart.ParentID,
		Kind:      taskStart.Kind,
		What:      taskStart.What,
		Where:     taskStart.Where,
		StartTime: t.timeTeller.Now(),
	}
}

// StepTask moves a pending task.
func (t *PendingTracer) StepTask(ts TaskStep) {
	t.lock.Lock()
	defer t.lock.Unlock()

	pending, ok := t.tracingTasks[ts.TaskID]
	if !ok {
		return
	}

	pending.Hops++
	if ts.Detail != "" {
		pending.Where = ts.Detail
	}
}

// EndTask forgets a task.
func (t *PendingTracer) EndTask(taskEnd TaskEnd) {
	t.lock.Lock()
	defer t.lock.Unlock()

	delete(t.tracingTasks, taskEnd.ID)
}

// Pending returns the pending tasks, oldest first.
func (t *PendingTracer) Pending() []PendingTask {
	t.lock.Lock()
	defer t.lock.Unlock()

	list := make([]PendingTask, 0, len(t.tracingTasks))
	for _, pending := range t.tracingTasks {
		list = append(list, *pending)
	}

	sort.Slice(list, func(i, j int) bool {
		if list[i].StartTime != list[j].StartTime {
			return list[i].StartTime < list[j].StartTime
		}

		return list[i].ID < list[j].ID
	})

	return list
}

// DumpBackTrace writes the task and its pending ancestors to w.
func (t *PendingTracer) DumpBackTrace(w io.Writer, taskID string) {
	t.lock.Lock()
	defer t.lock.Unlock()

	currTask, ok := t.tracingTasks[taskID]

	for ok {
		fmt.Fprintf(w, "%s-%s@%s since %d\n",
			currTask.Kind, currTask.What, currTask.Where, currTask.StartTime)

		currTask, ok = t.tracingTasks[currTask.ParentID]
	}
}
