package jobs

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"

	"github.com/karma-pos/karma/internal/platform/httpx"
)

// Worker wraps the Asynq server and optional scheduler.
type Worker struct {
	server    *asynq.Server
	mux       *asynq.ServeMux
	scheduler *asynq.Scheduler
	logger    *slog.Logger
}

// TaskHandler wires one task type to its handler during worker setup.
type TaskHandler struct {
	Type    string
	Handler asynq.HandlerFunc
}

// CronRegistration wires a cron expression to a prepared task.
type CronRegistration struct {
	Spec    string
	Task    *asynq.Task
	Options []asynq.Option
}

// WorkerConfig collects dependencies required to bootstrap the worker.
type WorkerConfig struct {
	RedisOpts asynq.RedisClientOpt
	Logger    *slog.Logger
	Handlers  []TaskHandler
	Cron      []CronRegistration
}

// NewWorker constructs a Worker instance.
func NewWorker(cfg WorkerConfig) (*Worker, error) {
	srv := asynq.NewServer(cfg.RedisOpts, asynq.Config{
		Concurrency: 5,
		Queues: map[string]int{
			QueueDefault: 1,
		},
	})
	mux := asynq.NewServeMux()
	for _, h := range cfg.Handlers {
		if h.Type == "" || h.Handler == nil {
			continue
		}
		mux.HandleFunc(h.Type, h.Handler)
	}

	var scheduler *asynq.Scheduler
	if len(cfg.Cron) > 0 {
		scheduler = asynq.NewScheduler(cfg.RedisOpts, &asynq.SchedulerOpts{Location: time.UTC})
		for _, entry := range cfg.Cron {
			if entry.Spec == "" || entry.Task == nil {
				continue
			}
			if _, err := scheduler.Register(entry.Spec, entry.Task, entry.Options...); err != nil {
				return nil, err
			}
		}
	}

	return &Worker{server: srv, mux: mux, scheduler: scheduler, logger: cfg.Logger}, nil
}

// Run starts processing jobs until context cancellation.
func (w *Worker) Run(ctx context.Context) error {
	if w == nil {
		return errors.New("worker: not configured")
	}
	if w.scheduler != nil {
		if err := w.scheduler.Start(); err != nil {
			return err
		}
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- w.server.Run(w.mux)
	}()
	select {
	case <-ctx.Done():
		if w.scheduler != nil {
			w.scheduler.Shutdown()
		}
		w.server.Shutdown()
		return ctx.Err()
	case err := <-errCh:
		if w.scheduler != nil {
			w.scheduler.Shutdown()
		}
		return err
	}
}

// Client submits jobs to the queue.
type Client struct {
	client *asynq.Client
}

// NewClient constructs an Asynq client.
func NewClient(redisOpts asynq.RedisClientOpt) *Client {
	return &Client{client: asynq.NewClient(redisOpts)}
}

// EnqueueLowStockScan enqueues an on-demand low-stock scan.
func (c *Client) EnqueueLowStockScan(ctx context.Context, umbral int64) (*asynq.TaskInfo, error) {
	task, err := NewLowStockScanTask(umbral, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	return c.client.EnqueueContext(ctx, task, asynq.Queue(QueueDefault))
}

// EnqueueDailySalesReport enqueues a report warmup for one day.
func (c *Client) EnqueueDailySalesReport(ctx context.Context, fecha string) (*asynq.TaskInfo, error) {
	task, err := NewDailySalesReportTask(fecha)
	if err != nil {
		return nil, err
	}
	return c.client.EnqueueContext(ctx, task, asynq.Queue(QueueDefault))
}

// Close releases client resources.
func (c *Client) Close() error {
	return c.client.Close()
}

// Handler exposes HTTP endpoints for job observability and on-demand runs.
type Handler struct {
	inspector *asynq.Inspector
	client    *Client
	logger    *slog.Logger
}

// NewHandler constructs an HTTP handler for jobs endpoints.
func NewHandler(inspector *asynq.Inspector, client *Client, logger *slog.Logger) *Handler {
	return &Handler{inspector: inspector, client: client, logger: logger}
}

// MountRoutes attaches job routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/health", h.health)
	r.Post("/escaneo-stock", h.enqueueLowStockScan)
	r.Post("/reporte-diario", h.enqueueDailyReport)
}

// enqueueLowStockScan queues a stock scan without waiting for the hourly
// cron. An optional umbral query overrides the configured threshold.
func (h *Handler) enqueueLowStockScan(w http.ResponseWriter, r *http.Request) {
	var umbral int64
	if raw := r.URL.Query().Get("umbral"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed <= 0 {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "umbral inválido")
			return
		}
		umbral = parsed
	}
	if h.client == nil {
		httpx.Problem(w, http.StatusServiceUnavailable, "Cola no disponible", "El encolado de tareas no está configurado")
		return
	}
	info, err := h.client.EnqueueLowStockScan(r.Context(), umbral)
	if err != nil {
		h.logger.Error("enqueue low stock scan", slog.Any("error", err))
		httpx.Problem(w, http.StatusServiceUnavailable, "Cola no disponible", "No se pudo encolar el escaneo")
		return
	}
	httpx.JSON(w, http.StatusAccepted, map[string]string{
		"mensaje": "Escaneo de stock encolado",
		"task_id": info.ID,
	})
}

// enqueueDailyReport queues a report warmup for the given fecha
// (AAAA-MM-DD); empty means yesterday.
func (h *Handler) enqueueDailyReport(w http.ResponseWriter, r *http.Request) {
	fecha := r.URL.Query().Get("fecha")
	if fecha != "" {
		if _, err := time.Parse("2006-01-02", fecha); err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "fecha inválida, use AAAA-MM-DD")
			return
		}
	}
	if h.client == nil {
		httpx.Problem(w, http.StatusServiceUnavailable, "Cola no disponible", "El encolado de tareas no está configurado")
		return
	}
	info, err := h.client.EnqueueDailySalesReport(r.Context(), fecha)
	if err != nil {
		h.logger.Error("enqueue daily report", slog.Any("error", err))
		httpx.Problem(w, http.StatusServiceUnavailable, "Cola no disponible", "No se pudo encolar el reporte")
		return
	}
	httpx.JSON(w, http.StatusAccepted, map[string]string{
		"mensaje": "Reporte diario encolado",
		"task_id": info.ID,
	})
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	if h.inspector == nil {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"queue":"default","pending":0}`))
		return
	}
	info, err := h.inspector.GetQueueInfo(QueueDefault)
	if err != nil {
		h.logger.Warn("jobs health", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	pending := 0
	queueName := QueueDefault
	if info != nil {
		pending = int(info.Pending)
		queueName = info.Queue
	}
	_, _ = w.Write([]byte(`{"queue":"` + queueName + `","pending":` + strconv.Itoa(pending) + `}`))
}
