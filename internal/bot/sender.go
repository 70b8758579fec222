package bot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// SendJob is one outgoing message queued for asynchronous delivery.
type SendJob struct {
	ChatID int64
	Text   string
}

type Worker struct {
	ID         int
	WorkerPool chan chan SendJob
	JobChannel chan SendJob
	Logger     *slog.Logger
}

func NewWorker(id int, workerPool chan chan SendJob, logger *slog.Logger) *Worker {
	return &Worker{
		ID:         id,
		WorkerPool: workerPool,
		JobChannel: make(chan SendJob),
		Logger:     logger,
	}
}

func (w *Worker) Start(ctx context.Context, wg *sync.WaitGroup, processFunc func(SendJob)) {
	wg.Add(1)
	go func() {
		defer wg.Done()

		for {
			w.WorkerPool <- w.JobChannel

			select {
			case job := <-w.JobChannel:
				w.Logger.Debug("worker delivering message", "worker_id", w.ID, "chat_id", job.ChatID)
				processFunc(job)
			case <-ctx.Done():
				w.Logger.Debug("worker shutting down", "worker_id", w.ID)
				return
			}
		}
	}()
}

// Client talks to the chat platform HTTP API. Replies to webhook updates
// are queued and delivered by a worker pool so the webhook handler never
// blocks on the platform.
type Client struct {
	apiURL      string
	token       string
	sendTimeout time.Duration
	httpClient  *http.Client
	logger      *slog.Logger

	jobQueue   chan SendJob
	workerPool chan chan SendJob
	maxWorkers int
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	once       sync.Once
}

type ClientConfig struct {
	APIURL         string
	Token          string
	SendTimeout    time.Duration
	MaxWorkers     int
	JobQueueSize   int
	WorkerPoolSize int
}

func NewClient(config ClientConfig, logger *slog.Logger) *Client {
	ctx, cancel := context.WithCancel(context.Background())

	sendTimeout := config.SendTimeout
	if sendTimeout <= 0 {
		sendTimeout = 10 * time.Second
	}

	maxWorkers := config.MaxWorkers
	if maxWorkers <= 0 {
		maxWorkers = 4
	}

	jobQueueSize := config.JobQueueSize
	if jobQueueSize <= 0 {
		jobQueueSize = 100
	}

	workerPoolSize := config.WorkerPoolSize
	if workerPoolSize <= 0 {
		workerPoolSize = maxWorkers
	}

	client := &Client{
		apiURL:      config.APIURL,
		token:       config.Token,
		sendTimeout: sendTimeout,
		httpClient:  &http.Client{Timeout: sendTimeout},
		logger:      logger,

		maxWorkers: maxWorkers,
		jobQueue:   make(chan SendJob, jobQueueSize),
		workerPool: make(chan chan SendJob, workerPoolSize),
		ctx:        ctx,
		cancel:     cancel,
	}

	client.startWorkerPool()

	return client
}

func (c *Client) startWorkerPool() {
	c.once.Do(func() {
		for i := 0; i < c.maxWorkers; i++ {
			worker := NewWorker(i, c.workerPool, c.logger)
			worker.Start(c.ctx, &c.wg, c.processSendJob)
		}

		go c.dispatch()

		c.logger.Info("bot sender worker pool started",
			"max_workers", c.maxWorkers,
			"queue_size", cap(c.jobQueue))
	})
}

func (c *Client) dispatch() {
	c.wg.Add(1)
	defer c.wg.Done()

	for {
		select {
		case job := <-c.jobQueue:
			select {
			case jobChannel := <-c.workerPool:
				select {
				case jobChannel <- job:

				case <-c.ctx.Done():
					c.logger.Info("dispatcher shutting down")
					return
				}
			case <-c.ctx.Done():
				c.logger.Info("dispatcher shutting down")
				return
			}
		case <-c.ctx.Done():
			c.logger.Info("dispatcher shutting down")
			return
		}
	}
}

func (c *Client) Shutdown() {
	c.logger.Info("shutting down bot sender")
	c.cancel()
	c.wg.Wait()
	c.logger.Info("bot sender shutdown complete")
}

// Enqueue queues a message for asynchronous delivery.
func (c *Client) Enqueue(chatID int64, text string) error {
	job := SendJob{ChatID: chatID, Text: text}

	select {
	case c.jobQueue <- job:
		return nil
	default:
		c.logger.Warn("outgoing queue full, dropping message",
			"chat_id", chatID,
			"queue_capacity", cap(c.jobQueue))
		return ErrQueueFull
	}
}

// Send delivers a message synchronously.
func (c *Client) Send(ctx context.Context, chatID int64, text string) error {
	payload := map[string]interface{}{
		"chat_id": chatID,
		"text":    text,
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal outgoing message: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.sendTimeout)
	defer cancel()

	url := fmt.Sprintf("%s/bot%s/sendMessage", c.apiURL, c.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create send request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("chat API returned status %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) processSendJob(job SendJob) {
	if err := c.Send(c.ctx, job.ChatID, job.Text); err != nil {
		c.logger.Error("failed to deliver message",
			"chat_id", job.ChatID,
			"error", err)
	}
}
