package simulation

import (
	"strings"

	"github.com/sarchlab/routesim/datarecording"
	"github.com/sarchlab/routesim/sim"
	"github.com/sarchlab/routesim/sim/hooking"
)

// Names of the tables written to the recording.
const (
	TaskTable      = "packet_tasks"
	StepTable      = "packet_steps"
	TickStatsTable = "tick_stats"
)

// TaskEntry is a row of the packet_tasks table.
type TaskEntry struct {
	ID        string `record:"index"`
	ParentID  string
	Kind      string
	What      string
	Location  string
	StartTime uint64
	EndTime   uint64
	Hops      int
	Tags      string
}

// StepEntry is a row of the packet_steps table.
type StepEntry struct {
	TaskID string `record:"index"`
	StepID string
	Time   uint64
	Kind   string
	What   string
	Detail string
}

// TickStatsEntry is a row of the tick_stats table.
type TickStatsEntry struct {
	Time     uint64 `record:"index"`
	Packets  uint64
	Routed   uint64
	InFlight int
}

// recorderBackend writes the finished tasks into a data recorder.
type recorderBackend struct {
	recorder datarecording.DataRecorder
}

func newRecorderBackend(
	recorder datarecording.DataRecorder,
) *recorderBackend {
	recorder.CreateTable(TaskTable, TaskEntry{})
	recorder.CreateTable(StepTable, StepEntry{})

	return &recorderBackend{recorder: recorder}
}

func (b *recorderBackend) Write(t hooking.Task) {
	tags := make([]string, 0, len(t.Tags))
	for _, tag := range t.Tags {
		tags = append(tags, tag.What)
	}

	b.recorder.InsertData(TaskTable, TaskEntry{
		ID:        t.ID,
		ParentID:  t.ParentID,
		Kind:      t.Kind,
		What:      t.What,
		Location:  t.Where,
		StartTime: t.StartTime,
		EndTime:   t.EndTime,
		Hops:      len(t.Steps),
		Tags:      strings.Join(tags, ","),
	})

	for _, s := range t.Steps {
		b.recorder.InsertData(StepTable, StepEntry{
			TaskID: t.ID,
			StepID: s.ID,
			Time:   s.Time,
			Kind:   s.Kind,
			What:   s.What,
			Detail: s.Detail,
		})
	}
}

func (b *recorderBackend) Flush() {
	b.recorder.Flush()
}

// tickStatsRecorder writes one row per tick with the delivery counters.
type tickStatsRecorder struct {
	simulator *sim.Simulator
	recorder  datarecording.DataRecorder
}

func newTickStatsRecorder(
	simulator *sim.Simulator,
	recorder datarecording.DataRecorder,
) *tickStatsRecorder {
	recorder.CreateTable(TickStatsTable, TickStatsEntry{})

	return &tickStatsRecorder{
		simulator: simulator,
		recorder:  recorder,
	}
}

func (r *tickStatsRecorder) Func(ctx hooking.HookCtx) {
	if ctx.Pos != sim.HookPosTickEnd {
		return
	}

	stats := r.simulator.Stats()

	r.recorder.InsertData(TickStatsTable, TickStatsEntry{
		Time:     ctx.Item.(uint64),
		Packets:  stats.Packets,
		Routed:   stats.Routed,
		InFlight: r.simulator.StoredDataPackets() +
			r.simulator.InFlightDataPackets(),
	})
}
