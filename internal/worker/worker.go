// Package worker provides a NATS worker that pre-warms the TTS cache.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/book-expert/events"
	"github.com/book-expert/logger"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/book-expert/yomitan-audio/internal/kana"
	"github.com/book-expert/yomitan-audio/internal/text"
	"github.com/book-expert/yomitan-audio/internal/ttscache"
)

const handleMessageTimeout = 30 * time.Second

var (
	// ErrTermEmpty indicates that a prewarm request has no term.
	ErrTermEmpty = errors.New("term cannot be empty")
	// ErrFieldTooLong indicates that the term or reading exceeds the length limit.
	ErrFieldTooLong = errors.New("term or reading is too long")
)

// PrewarmRequest asks for one TTS candidate to be synthesized and cached.
type PrewarmRequest struct {
	Header  events.EventHeader `json:"header"`
	Term    string             `json:"term"`
	Reading string             `json:"reading"`
	Pitch   string             `json:"pitch"`
}

// Resolver resolves TTS audio through the cache.
type Resolver interface {
	Resolve(ctx context.Context, term, reading, pitch string) (*ttscache.Result, error)
}

// NatsWorker answers prewarm requests on a NATS subject.
type NatsWorker struct {
	natsConnection *nats.Conn
	subject        string
	resolver       Resolver
	preprocessor   *text.Preprocessor
	log            *logger.Logger
	started        chan struct{}
}

// NewNatsWorker creates a new instance of a NATS worker.
func NewNatsWorker(
	natsConnection *nats.Conn,
	subject string,
	resolver Resolver,
	log *logger.Logger,
) *NatsWorker {
	return &NatsWorker{
		natsConnection: natsConnection,
		subject:        subject,
		resolver:       resolver,
		preprocessor:   text.NewPreprocessor(),
		log:            log,
		started:        make(chan struct{}),
	}
}

// Started is closed once the subscription is registered with the server.
func (w *NatsWorker) Started() <-chan struct{} {
	return w.started
}

// Run listens for prewarm requests until ctx is cancelled.
func (w *NatsWorker) Run(ctx context.Context) error {
	sub, err := w.natsConnection.Subscribe(w.subject, w.handleMessage)
	if err != nil {
		return fmt.Errorf("failed to subscribe to subject %s: %w", w.subject, err)
	}

	err = w.natsConnection.Flush()
	if err != nil {
		return fmt.Errorf("failed to flush subscription to subject %s: %w", w.subject, err)
	}

	close(w.started)
	w.log.Info("prewarm worker listening on subject: %s", w.subject)

	<-ctx.Done()

	drainErr := sub.Drain()
	if drainErr != nil {
		return fmt.Errorf("failed to drain subscription: %w", drainErr)
	}

	return nil
}

func (w *NatsWorker) handleMessage(msg *nats.Msg) {
	ctx, cancel := context.WithTimeout(context.Background(), handleMessageTimeout)
	defer cancel()

	req, err := w.parseAndValidateRequest(msg)
	if err != nil {
		w.log.Error("Failed to parse and validate prewarm request: %v", err)

		return
	}

	result, err := w.resolver.Resolve(ctx, req.Term, req.Reading, req.Pitch)
	if err != nil {
		w.log.Error("Failed to prewarm TTS for workflow %s: %v", req.Header.WorkflowID, err)

		return
	}

	// The reply announces a stored object, so it waits for the cache write.
	err = result.Wait(ctx)
	if err != nil {
		w.log.Error("Failed to store prewarmed TTS for workflow %s: %v", req.Header.WorkflowID, err)

		return
	}

	header := req.Header
	header.Timestamp = time.Now()
	header.EventID = uuid.NewString()

	replyEvent := &events.AudioChunkCreatedEvent{
		Header:   header,
		AudioKey: ttscache.ObjectKey(result.Key),
	}

	err = w.publishReplyEvent(msg, replyEvent)
	if err != nil {
		w.log.Error("Failed to publish reply event for workflow %s: %v", req.Header.WorkflowID, err)
	}
}

// publishReplyEvent marshals and responds with the AudioChunkCreatedEvent.
func (w *NatsWorker) publishReplyEvent(msg *nats.Msg, replyEvent *events.AudioChunkCreatedEvent) error {
	if msg.Reply == "" {
		return nil
	}

	replyData, err := json.Marshal(replyEvent)
	if err != nil {
		return fmt.Errorf("failed to marshal reply event: %w", err)
	}

	err = msg.Respond(replyData)
	if err != nil {
		return fmt.Errorf("failed to publish reply event: %w", err)
	}

	return nil
}

func (w *NatsWorker) parseAndValidateRequest(msg *nats.Msg) (*PrewarmRequest, error) {
	var req PrewarmRequest

	err := json.Unmarshal(msg.Data, &req)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal prewarm request: %w", err)
	}

	req.Term = w.preprocessor.CleanField(req.Term)
	req.Reading = kana.ToHiragana(w.preprocessor.CleanField(req.Reading))

	if req.Term == "" {
		return nil, ErrTermEmpty
	}

	if text.TooLong(req.Term) || text.TooLong(req.Reading) {
		return nil, ErrFieldTooLong
	}

	if req.Header.WorkflowID == "" {
		req.Header.WorkflowID = uuid.NewString()
	}

	return &req, nil
}
