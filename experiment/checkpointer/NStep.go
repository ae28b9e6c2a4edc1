package checkpointer

// nStep implements checkpointing every N training iterations
type nStep struct {
	interval int
	last     int // Interval index of the last checkpoint
	object   Snapshotter

	// name is the base name passed to the object's Snapshot method.
	// Since snapshots are suffixed by the training iteration, each
	// checkpoint is saved to distinct files.
	name string
}

// NewNStep returns a checkpointer that snapshots object, including its
// replay memory and solver state, once every n iterations. Since
// iterations may advance by more than one between calls to
// Checkpoint, a checkpoint is taken whenever a multiple of n has been
// passed since the last checkpoint.
func NewNStep(n int, object Snapshotter, name string) Checkpointer {
	if n < 1 {
		panic("newnstep: interval must be positive")
	}
	return &nStep{
		interval: n,
		last:     object.CurrentIteration() / n,
		object:   object,
		name:     name,
	}
}

// Checkpoint snapshots the Checkpointer's tracked object if another
// interval of iterations has passed
func (n *nStep) Checkpoint(iteration int) error {
	if iteration/n.interval <= n.last {
		return nil
	}
	n.last = iteration / n.interval
	return n.object.Snapshot(n.name, true, true)
}
