// Package worker_test tests the NATS prewarm worker.
package worker_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/book-expert/events"
	"github.com/book-expert/logger"
	"github.com/google/uuid"
	"github.com/nats-io/nats-server/v2/test"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/book-expert/yomitan-audio/internal/core"
	"github.com/book-expert/yomitan-audio/internal/tts"
	"github.com/book-expert/yomitan-audio/internal/ttscache"
	"github.com/book-expert/yomitan-audio/internal/worker"
)

var errMockSynth = errors.New("mock synth error")

var errMockUpload = errors.New("mock upload error")

type mockObjectStore struct {
	mu          sync.Mutex
	objects     map[string][]byte
	uploadDelay time.Duration
	failUpload  bool
}

func newMockObjectStore() *mockObjectStore {
	return &mockObjectStore{objects: make(map[string][]byte)}
}

func (m *mockObjectStore) Download(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, ok := m.objects[key]
	if !ok {
		return nil, fmt.Errorf("%s: %w", key, core.ErrObjectNotFound)
	}

	return data, nil
}

func (m *mockObjectStore) Upload(_ context.Context, key string, data []byte) error {
	time.Sleep(m.uploadDelay)

	if m.failUpload {
		return errMockUpload
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.objects[key] = data

	return nil
}

type mockSynth struct {
	calls      atomic.Int32
	shouldFail bool
}

func (m *mockSynth) Synthesize(context.Context, core.SynthesisInput) ([]byte, error) {
	m.calls.Add(1)

	if m.shouldFail {
		return nil, errMockSynth
	}

	return []byte("sample audio"), nil
}

func createTestNatsClient(t *testing.T) *nats.Conn {
	t.Helper()

	opts := test.DefaultTestOptions
	opts.Port = -1
	opts.JetStream = true
	opts.StoreDir = t.TempDir()
	server := test.RunServer(&opts)

	natsConnection, err := nats.Connect(server.ClientURL())
	if err != nil {
		t.Fatalf("Failed to connect to test NATS server: %v", err)
	}

	t.Cleanup(func() {
		natsConnection.Close()
		server.Shutdown()
	})

	return natsConnection
}

func createTestLogger(t *testing.T) *logger.Logger {
	t.Helper()

	log, err := logger.New(t.TempDir(), "test.log")
	require.NoError(t, err)

	t.Cleanup(func() { _ = log.Close() })

	return log
}

func startWorker(t *testing.T, synth core.Synthesizer, store *mockObjectStore) *nats.Conn {
	t.Helper()

	natsConnection := createTestNatsClient(t)
	log := createTestLogger(t)
	orchestrator := ttscache.New(store, synth, tts.NewInputBuilder(""), log)

	workerInstance := worker.NewNatsWorker(natsConnection, "prewarm", orchestrator, log)

	ctx, cancel := context.WithCancel(context.Background())
	errChan := make(chan error, 1)

	go func() {
		errChan <- workerInstance.Run(ctx)
	}()

	select {
	case <-workerInstance.Started():
	case err := <-errChan:
		t.Fatalf("worker exited early: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not start")
	}

	t.Cleanup(func() {
		cancel()
		assert.NoError(t, <-errChan, "worker.Run should not error on graceful shutdown")
	})

	return natsConnection
}

func request(t *testing.T, natsConnection *nats.Conn, payload any, timeout time.Duration) (*nats.Msg, error) {
	t.Helper()

	data, err := json.Marshal(payload)
	require.NoError(t, err)

	return natsConnection.Request("prewarm", data, timeout)
}

func TestPrewarm_Success(t *testing.T) {
	t.Parallel()

	synth := &mockSynth{}
	natsConnection := startWorker(t, synth, newMockObjectStore())

	prewarm := worker.PrewarmRequest{
		Header:  events.EventHeader{Timestamp: time.Now(), WorkflowID: uuid.NewString()},
		Term:    "行く",
		Reading: "イク",
		Pitch:   "イ'ク",
	}

	replyMsg, err := request(t, natsConnection, prewarm, 5*time.Second)
	require.NoError(t, err, "Request should succeed and receive a reply")

	var replyEvent events.AudioChunkCreatedEvent
	require.NoError(t, json.Unmarshal(replyMsg.Data, &replyEvent))

	assert.Equal(t, ttscache.ObjectKey(ttscache.Key("行く", "いく", "イ'ク")), replyEvent.AudioKey)
	assert.Equal(t, prewarm.Header.WorkflowID, replyEvent.Header.WorkflowID)
	assert.NotEmpty(t, replyEvent.Header.EventID)
	assert.Equal(t, int32(1), synth.calls.Load())
}

func TestPrewarm_InvalidRequestsAreDropped(t *testing.T) {
	t.Parallel()

	synth := &mockSynth{}
	natsConnection := startWorker(t, synth, newMockObjectStore())

	_, err := natsConnection.Request("prewarm", []byte("{not json"), 300*time.Millisecond)
	require.ErrorIs(t, err, nats.ErrTimeout)

	_, err = request(t, natsConnection, worker.PrewarmRequest{Term: "<b></b>"}, 300*time.Millisecond)
	require.ErrorIs(t, err, nats.ErrTimeout)

	assert.Zero(t, synth.calls.Load())

	replyMsg, err := request(t, natsConnection, worker.PrewarmRequest{Term: "猫"}, 5*time.Second)
	require.NoError(t, err)

	var replyEvent events.AudioChunkCreatedEvent
	require.NoError(t, json.Unmarshal(replyMsg.Data, &replyEvent))
	assert.NotEmpty(t, replyEvent.Header.WorkflowID)
}

func TestPrewarm_SynthesisFailureSendsNoReply(t *testing.T) {
	t.Parallel()

	natsConnection := startWorker(t, &mockSynth{shouldFail: true}, newMockObjectStore())

	_, err := request(t, natsConnection, worker.PrewarmRequest{Term: "猫"}, 300*time.Millisecond)
	require.ErrorIs(t, err, nats.ErrTimeout)
}

func TestPrewarm_RepliesOnlyAfterObjectIsStored(t *testing.T) {
	t.Parallel()

	store := newMockObjectStore()
	store.uploadDelay = 200 * time.Millisecond
	natsConnection := startWorker(t, &mockSynth{}, store)

	replyMsg, err := request(t, natsConnection, worker.PrewarmRequest{Term: "猫", Reading: "ねこ"}, 5*time.Second)
	require.NoError(t, err)

	var replyEvent events.AudioChunkCreatedEvent
	require.NoError(t, json.Unmarshal(replyMsg.Data, &replyEvent))

	stored, err := store.Download(context.Background(), replyEvent.AudioKey)
	require.NoError(t, err, "announced object must already be in the store")
	assert.Equal(t, []byte("sample audio"), stored)
}

func TestPrewarm_FailedCacheWriteSendsNoReply(t *testing.T) {
	t.Parallel()

	store := newMockObjectStore()
	store.failUpload = true
	synth := &mockSynth{}
	natsConnection := startWorker(t, synth, store)

	_, err := request(t, natsConnection, worker.PrewarmRequest{Term: "猫"}, 500*time.Millisecond)
	require.ErrorIs(t, err, nats.ErrTimeout)
	assert.Equal(t, int32(1), synth.calls.Load())
}

func TestNatsNotifier_PublishesAfterCacheWrite(t *testing.T) {
	t.Parallel()

	natsConnection := createTestNatsClient(t)

	received := make(chan *nats.Msg, 1)
	sub, err := natsConnection.ChanSubscribe("audio.created", received)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sub.Unsubscribe() })
	require.NoError(t, natsConnection.Flush())

	store := newMockObjectStore()
	orchestrator := ttscache.New(store, &mockSynth{}, tts.NewInputBuilder(""), createTestLogger(t),
		ttscache.WithNotifier(worker.NewNatsNotifier(natsConnection, "audio.created")))

	result, err := orchestrator.Resolve(context.Background(), "猫", "ねこ", "")
	require.NoError(t, err)

	select {
	case msg := <-received:
		var event events.AudioChunkCreatedEvent
		require.NoError(t, json.Unmarshal(msg.Data, &event))
		assert.Equal(t, ttscache.ObjectKey(result.Key), event.AudioKey)
		assert.NotEmpty(t, event.Header.EventID)
	case <-time.After(5 * time.Second):
		t.Fatal("no audio created event received")
	}
}
