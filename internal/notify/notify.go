// Package notify provides the toast notification surface rendered by the document shell.
package notify

import "sync"

// Kind distinguishes toast styles.
type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
)

// Toast is one pending notification.
type Toast struct {
	Kind    Kind
	Message string
}

// Sink accepts notifications.
type Sink interface {
	Success(message string)
	Error(message string)
}

// Queue collects toasts until the next page render drains them.
type Queue struct {
	mu      sync.Mutex
	pending []Toast
}

// Success enqueues a success toast.
func (q *Queue) Success(message string) {
	q.push(Toast{Kind: KindSuccess, Message: message})
}

// Error enqueues an error toast.
func (q *Queue) Error(message string) {
	q.push(Toast{Kind: KindError, Message: message})
}

func (q *Queue) push(t Toast) {
	if t.Message == "" {
		return
	}
	q.mu.Lock()
	q.pending = append(q.pending, t)
	q.mu.Unlock()
}

// Drain returns the pending toasts in arrival order and empties the queue.
func (q *Queue) Drain() []Toast {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.pending
	q.pending = nil
	return out
}

// Len reports how many toasts are waiting.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}
