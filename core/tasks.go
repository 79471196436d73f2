package core

import (
	"fmt"
	"log"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// TaskStore is the shared task table. Update applies the mutation under the
// store's lock, so readers never observe a half-written record (for example
// status=completed with the result still unset).
type TaskStore interface {
	Put(t Task)
	Get(id string) (Task, bool)
	Update(id string, fn func(*Task)) bool
	List() []Task
}

type MemoryTaskStore struct {
	mu    sync.RWMutex
	tasks map[string]Task
}

func NewMemoryTaskStore() *MemoryTaskStore {
	return &MemoryTaskStore{tasks: make(map[string]Task)}
}

func (s *MemoryTaskStore) Put(t Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[t.TaskID] = t
}

func (s *MemoryTaskStore) Get(id string) (Task, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tasks[id]
	return t, ok
}

func (s *MemoryTaskStore) Update(id string, fn func(*Task)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return false
	}
	fn(&t)
	s.tasks[id] = t
	return true
}

func (s *MemoryTaskStore) List() []Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		out = append(out, t)
	}
	return out
}

// ErrLectureBusy rejects a submission while another task for the same
// lecture is still pending or running. Both task types write into the same
// lecture directory, so two in-flight tasks would race on the artifacts.
type ErrLectureBusy struct {
	LectureID string
	TaskID    string
}

func (e *ErrLectureBusy) Error() string {
	return fmt.Sprintf("lecture %s already has task %s in flight", e.LectureID, e.TaskID)
}

type submission struct {
	taskID string
	work   func() (any, error)
}

// TaskManager runs submitted work on a bounded worker pool and tracks each
// unit as a Task record. Tasks are never retried, cancelled or deleted; the
// table lives for the process lifetime only.
type TaskManager struct {
	store    TaskStore
	queue    chan submission
	wg       sync.WaitGroup
	seq      atomic.Int64
	mu       sync.Mutex
	inflight map[string]string // lectureID -> taskID
}

// NewTaskManager starts workers goroutines consuming a queue of queueDepth
// pending submissions.
func NewTaskManager(store TaskStore, workers, queueDepth int) *TaskManager {
	if workers <= 0 {
		workers = 4
	}
	if queueDepth <= 0 {
		queueDepth = 16
	}
	m := &TaskManager{
		store:    store,
		queue:    make(chan submission, queueDepth),
		inflight: make(map[string]string),
	}
	for i := 0; i < workers; i++ {
		m.wg.Add(1)
		go m.worker()
	}
	return m
}

// Submit registers a pending task for lectureID and enqueues work for
// asynchronous execution. It returns immediately with the new task id, or an
// error if the lecture already has a task in flight or the queue is full.
func (m *TaskManager) Submit(taskType TaskType, lectureID string, work func() (any, error)) (string, error) {
	taskID := fmt.Sprintf("%s_%d", taskType, m.seq.Add(1))

	m.mu.Lock()
	if running, ok := m.inflight[lectureID]; ok {
		m.mu.Unlock()
		return "", &ErrLectureBusy{LectureID: lectureID, TaskID: running}
	}
	m.inflight[lectureID] = taskID
	m.mu.Unlock()

	m.store.Put(Task{
		TaskID:    taskID,
		Type:      taskType,
		LectureID: lectureID,
		Status:    TaskPending,
		CreatedAt: time.Now(),
	})

	select {
	case m.queue <- submission{taskID: taskID, work: work}:
		log.Printf("task submitted: %s (lecture %s)", taskID, lectureID)
		return taskID, nil
	default:
		m.release(lectureID, taskID)
		m.finish(taskID, nil, fmt.Errorf("task queue full"))
		return taskID, fmt.Errorf("task queue full, try again later")
	}
}

// Status returns the current task record or a TaskNotFoundError.
func (m *TaskManager) Status(taskID string) (Task, error) {
	t, ok := m.store.Get(taskID)
	if !ok {
		return Task{}, &TaskNotFoundError{TaskID: taskID}
	}
	return t, nil
}

// List returns all task records ordered by submission time.
func (m *TaskManager) List() []Task {
	tasks := m.store.List()
	sort.Slice(tasks, func(i, j int) bool {
		if tasks[i].CreatedAt.Equal(tasks[j].CreatedAt) {
			return tasks[i].TaskID < tasks[j].TaskID
		}
		return tasks[i].CreatedAt.Before(tasks[j].CreatedAt)
	})
	return tasks
}

// Shutdown stops accepting work and waits for in-flight tasks to finish.
// There is no cancellation: running external calls are left to complete.
func (m *TaskManager) Shutdown() {
	close(m.queue)
	m.wg.Wait()
}

func (m *TaskManager) worker() {
	defer m.wg.Done()
	for sub := range m.queue {
		m.run(sub)
	}
}

func (m *TaskManager) run(sub submission) {
	m.store.Update(sub.taskID, func(t *Task) {
		t.Status = TaskRunning
	})

	var result any
	var err error
	func() {
		// A panicking pipeline must surface as a failed task, never
		// take the process down.
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("task panic: %v", r)
			}
		}()
		result, err = sub.work()
	}()

	var lectureID string
	if t, ok := m.store.Get(sub.taskID); ok {
		lectureID = t.LectureID
	}
	m.finish(sub.taskID, result, err)
	m.release(lectureID, sub.taskID)
}

func (m *TaskManager) finish(taskID string, result any, err error) {
	now := time.Now()
	m.store.Update(taskID, func(t *Task) {
		t.CompletedAt = &now
		if err != nil {
			t.Status = TaskFailed
			t.Error = err.Error()
			log.Printf("task %s failed: %v", taskID, err)
			return
		}
		t.Status = TaskCompleted
		t.Result = result
	})
}

func (m *TaskManager) release(lectureID, taskID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.inflight[lectureID] == taskID {
		delete(m.inflight, lectureID)
	}
}
