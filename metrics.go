package termrun

import (
	"os"
	"time"

	"github.com/shirou/gopsutil/v4/process"
)

// Metrics is a read-only snapshot of runtime health, computed on demand by
// Runtime.Metrics and never stored.
type Metrics struct {
	// FrameRate is the average frames per second since Run started.
	FrameRate float64

	// FrameCount is the number of frames painted so far.
	FrameCount uint64

	// QueueDepth is the number of messages waiting in the channel.
	QueueDepth int

	// ActiveCommands is the number of commands currently executing.
	ActiveCommands int

	// LastRender and LastUpdate are the durations of the most recent paint
	// and update.
	LastRender time.Duration
	LastUpdate time.Duration

	// MemoryBytes is the process's resident set size, or zero when it
	// cannot be read.
	MemoryBytes uint64
}

// residentMemory reads the process RSS. Failures degrade to zero; metrics
// are advisory.
func residentMemory() uint64 {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return 0
	}
	info, err := proc.MemoryInfo()
	if err != nil || info == nil {
		return 0
	}
	return info.RSS
}
