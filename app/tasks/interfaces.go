package tasks

// TaskSchedulerInterface defines the interface for task scheduling operations.
// Used by the main application to manage background keyword mining.
// This interface provides task queue management and worker pool control.
// Example usage:
//
//	scheduler := NewScheduler(seedLists, store, collector)
//	scheduler.Start()
//	defer scheduler.Stop()
//	scheduler.EnqueueTask(NewMineSeedListTask(...))
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
}
