package worker

import (
	"context"
	"errors"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"collaborative-story/internal/repository"
	"collaborative-story/internal/tasks"
)

// WorkerServer wraps the asynq server and its handler registrations.
type WorkerServer struct {
	server      *asynq.Server
	log         *logrus.Entry
	archiveRepo repository.ArchiveRepository
	roomRepo    repository.RoomRepository
}

// NewWorkerServer creates a WorkerServer.
func NewWorkerServer(redisOpt asynq.RedisClientOpt, archiveRepo repository.ArchiveRepository, roomRepo repository.RoomRepository, logger *logrus.Logger) *WorkerServer {
	logEntry := logger.WithField("component", "worker_server")

	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"critical": 6,
				"default":  3,
				"low":      1,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				retryCount, _ := asynq.GetRetryCount(ctx)
				maxRetry, _ := asynq.GetMaxRetry(ctx)
				logEntry.WithFields(logrus.Fields{
					"task_type": task.Type(),
					"retries":   retryCount,
					"max_retry": maxRetry,
				}).Errorf("Task failed: %v", err)
			}),
		},
	)

	return &WorkerServer{
		server:      server,
		log:         logEntry,
		archiveRepo: archiveRepo,
		roomRepo:    roomRepo,
	}
}

// Start runs the worker server. Call it in its own goroutine.
func (ws *WorkerServer) Start() {
	mux := asynq.NewServeMux()
	mux.HandleFunc(tasks.TypeStoryArchive, NewArchiveHandler(ws.archiveRepo).ProcessTask)
	mux.HandleFunc(tasks.TypeRoomSweep, NewSweepHandler(ws.roomRepo).ProcessTask)

	ws.log.Info("Worker server starting...")
	if err := ws.server.Run(mux); err != nil {
		if !errors.Is(err, asynq.ErrServerClosed) {
			ws.log.Fatalf("Could not run worker server: %v", err)
		}
		ws.log.Info("Worker server stopped.")
	}
}

// Shutdown gracefully stops the worker server.
func (ws *WorkerServer) Shutdown() {
	ws.log.Info("Shutting down worker server...")
	ws.server.Shutdown()
	ws.log.Info("Worker server shut down complete.")
}
