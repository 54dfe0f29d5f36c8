package services

// Enqueuer is the task-queue boundary: fire-and-forget, at-least-once,
// no ordering guarantee. Creators call it only after the transaction
// that created the match has committed, so a worker can never observe a
// half-written match.
type Enqueuer interface {
	Enqueue(matchID string)
}
