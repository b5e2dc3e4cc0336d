// Package objectstore_test tests the NATS object store implementation.
package objectstore_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats-server/v2/test"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/book-expert/yomitan-audio/internal/core"
	"github.com/book-expert/yomitan-audio/internal/objectstore"
)

// StartTestServer starts an in-memory NATS server for testing purposes.
func StartTestServer(t *testing.T) (*server.Server, *nats.Conn) {
	t.Helper()

	opts := test.DefaultTestOptions
	opts.Port = -1
	opts.JetStream = true
	opts.StoreDir = t.TempDir()
	natsServer := test.RunServer(&opts)

	natsConnection, err := nats.Connect(natsServer.ClientURL())
	if err != nil {
		t.Fatalf("Failed to connect to test NATS server: %v", err)
	}

	return natsServer, natsConnection
}

func newTestStore(t *testing.T, bucket string) (*objectstore.NatsObjectStore, nats.JetStreamContext) {
	t.Helper()

	natsServer, natsConnection := StartTestServer(t)
	t.Cleanup(natsServer.Shutdown)
	t.Cleanup(natsConnection.Close)

	jetstreamContext, err := natsConnection.JetStream()
	require.NoError(t, err)

	store, err := objectstore.New(jetstreamContext, bucket)
	require.NoError(t, err)

	return store, jetstreamContext
}

func TestNatsObjectStore_UploadDownload(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(t, "test-bucket")
	ctx := context.Background()
	uploadData := []byte("ID3 fake mp3")

	err := store.Upload(ctx, "tts_files/neko.mp3", uploadData)
	require.NoError(t, err)

	downloadData, err := store.Download(ctx, "tts_files/neko.mp3")
	require.NoError(t, err)
	require.Equal(t, uploadData, downloadData)
}

func TestNatsObjectStore_MissingKey(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(t, "missing-bucket")

	_, err := store.Download(context.Background(), "nhk16_files/absent.mp3")
	require.ErrorIs(t, err, core.ErrObjectNotFound)
}

func TestNatsObjectStore_BindsExistingBucket(t *testing.T) {
	t.Parallel()

	store, jetstreamContext := newTestStore(t, "shared-bucket")
	require.NoError(t, store.Upload(context.Background(), "k", []byte("v")))

	again, err := objectstore.New(jetstreamContext, "shared-bucket")
	require.NoError(t, err)

	data, err := again.Download(context.Background(), "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), data)
}

func TestNatsObjectStore_ConcurrentWritesSameKey(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(t, "race-bucket")
	ctx := context.Background()

	payloads := make(map[string]struct{})

	var wg sync.WaitGroup

	for i := range 5 {
		payload := fmt.Sprintf("payload-%d", i)
		payloads[payload] = struct{}{}

		wg.Add(1)

		go func() {
			defer wg.Done()

			assert.NoError(t, store.Upload(ctx, "tts_files/same.mp3", []byte(payload)))
		}()
	}

	wg.Wait()

	data, err := store.Download(ctx, "tts_files/same.mp3")
	require.NoError(t, err)
	assert.Contains(t, payloads, string(data))
}
