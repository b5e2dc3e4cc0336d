// Package ttscache serves synthesized pronunciation audio from the object
// store, synthesizing and persisting it on a miss.
package ttscache

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"time"

	"github.com/book-expert/logger"
	"golang.org/x/sync/singleflight"

	"github.com/book-expert/yomitan-audio/internal/core"
	"github.com/book-expert/yomitan-audio/internal/kana"
	"github.com/book-expert/yomitan-audio/internal/tts"
)

const (
	objectKeyPrefix = "tts_files/"
	objectKeySuffix = ".mp3"
	keySeparator    = ","

	errMsgSynthesisFailed = "TTS synthesis failed"

	// synthesisTimeout bounds a shared synthesis, which no single caller
	// can cancel.
	synthesisTimeout = 60 * time.Second
)

// Notifier is told about every synthesized clip that reached the store.
type Notifier interface {
	AudioCached(ctx context.Context, key, objectKey string) error
}

// PersistHook observes the outcome of a detached cache write.
type PersistHook func(key string, err error)

// Result is the audio for one resolution. Done is closed once any detached
// cache write has finished; it is already closed for cache hits.
type Result struct {
	Audio     []byte
	Cached    bool
	Key       string
	Done      <-chan struct{}
	persisted *persistence
}

// Wait blocks until the cache holds the audio and returns the cache write
// error, if any. Cache hits return nil at once.
func (r *Result) Wait(ctx context.Context) error {
	select {
	case <-r.Done:
		return r.persisted.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// persistence tracks one detached cache write. err is set before done is
// closed.
type persistence struct {
	done chan struct{}
	err  error
}

func completed() *persistence {
	p := &persistence{done: make(chan struct{})}
	close(p.done)

	return p
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithNotifier publishes a notification after each successful cache write.
func WithNotifier(notifier Notifier) Option {
	return func(o *Orchestrator) { o.notifier = notifier }
}

// WithPersistHook registers a hook run after each detached cache write.
func WithPersistHook(hook PersistHook) Option {
	return func(o *Orchestrator) { o.persistHook = hook }
}

// Orchestrator resolves TTS audio through the cache.
type Orchestrator struct {
	store       core.ObjectStore
	synth       core.Synthesizer
	builder     tts.InputBuilder
	log         *logger.Logger
	flights     singleflight.Group
	notifier    Notifier
	persistHook PersistHook
	pending     sync.WaitGroup
}

// New creates an Orchestrator.
func New(
	store core.ObjectStore,
	synth core.Synthesizer,
	builder tts.InputBuilder,
	log *logger.Logger,
	opts ...Option,
) *Orchestrator {
	o := &Orchestrator{store: store, synth: synth, builder: builder, log: log}
	for _, opt := range opts {
		opt(o)
	}

	return o
}

// Key encodes the triple so that distinct triples never share a key. Each
// field is query-escaped, which always escapes the separator.
func Key(term, reading, pitch string) string {
	return url.QueryEscape(term) + keySeparator +
		url.QueryEscape(kana.ToHiragana(reading)) + keySeparator +
		url.QueryEscape(pitch)
}

// ObjectKey is the store key holding the audio for key.
func ObjectKey(key string) string {
	return objectKeyPrefix + key + objectKeySuffix
}

type flight struct {
	audio     []byte
	persisted *persistence
}

// Resolve returns cached audio, or synthesizes it and schedules a detached
// cache write. The write never delays or fails the caller. Concurrent misses
// for the same key in this process share a single synthesis, which runs
// detached from every caller's context; a caller that gives up returns its
// own context error without failing the others.
func (o *Orchestrator) Resolve(ctx context.Context, term, reading, pitch string) (*Result, error) {
	key := Key(term, reading, pitch)
	objectKey := ObjectKey(key)

	cached, err := o.store.Download(ctx, objectKey)
	if err == nil {
		o.log.Info("using_cached_tts: key=%s", objectKey)

		hit := completed()

		return &Result{Audio: cached, Cached: true, Key: key, Done: hit.done, persisted: hit}, nil
	}

	if !errors.Is(err, core.ErrObjectNotFound) {
		o.log.Warn("tts_cache_read_failed: key=%s: %v", objectKey, err)
	}

	o.pending.Add(1)

	shared := o.flights.DoChan(key, func() (any, error) {
		return o.synthesize(context.WithoutCancel(ctx), term, reading, pitch, key, objectKey)
	})

	select {
	case <-ctx.Done():
		o.log.Warn("tts_caller_gave_up: key=%s: %v", objectKey, ctx.Err())

		go func() { o.settle(<-shared) }()

		return nil, core.Upstream(errMsgSynthesisFailed, ctx.Err())
	case res := <-shared:
		go o.settle(res)

		if res.Err != nil {
			o.log.Error("tts_synthesis_failed: term=%q reading=%q pitch=%q: %v", term, reading, pitch, res.Err)

			return nil, core.Upstream(errMsgSynthesisFailed, res.Err)
		}

		result, ok := res.Val.(*flight)
		if !ok {
			return nil, core.Upstream(errMsgSynthesisFailed, nil)
		}

		return &Result{Audio: result.audio, Key: key, Done: result.persisted.done, persisted: result.persisted}, nil
	}
}

// settle releases one caller's pending count once its shared flight has
// finished persisting.
func (o *Orchestrator) settle(res singleflight.Result) {
	defer o.pending.Done()

	if result, ok := res.Val.(*flight); ok && result != nil {
		<-result.persisted.done
	}
}

func (o *Orchestrator) synthesize(ctx context.Context, term, reading, pitch, key, objectKey string) (*flight, error) {
	synthCtx, cancel := context.WithTimeout(ctx, synthesisTimeout)
	defer cancel()

	audio, err := o.synth.Synthesize(synthCtx, o.builder.Build(term, reading, pitch))
	if err != nil {
		return nil, err
	}

	o.log.Info("generated_new_tts: term=%q reading=%q pitch=%q bytes=%d", term, reading, pitch, len(audio))

	return &flight{audio: audio, persisted: o.persist(ctx, key, objectKey, audio)}, nil
}

// persist writes audio in the background. ctx must already be detached from
// any request.
func (o *Orchestrator) persist(ctx context.Context, key, objectKey string, audio []byte) *persistence {
	state := &persistence{done: make(chan struct{})}

	go func() {
		defer close(state.done)

		err := o.store.Upload(ctx, objectKey, audio)
		if err != nil {
			o.log.Error("tts_cache_write_failed: key=%s: %v", objectKey, err)
		} else {
			o.log.Info("tts_cache_written: key=%s", objectKey)
			o.notify(ctx, key, objectKey)
		}

		state.err = err

		if o.persistHook != nil {
			o.persistHook(key, err)
		}
	}()

	return state
}

// Drain waits for every pending synthesis and cache write, or until ctx is
// done. Call it after the last Resolve has returned.
func (o *Orchestrator) Drain(ctx context.Context) error {
	drained := make(chan struct{})

	go func() {
		o.pending.Wait()
		close(drained)
	}()

	select {
	case <-drained:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (o *Orchestrator) notify(ctx context.Context, key, objectKey string) {
	if o.notifier == nil {
		return
	}

	err := o.notifier.AudioCached(ctx, key, objectKey)
	if err != nil {
		o.log.Warn("audio_created_notify_failed: key=%s: %v", objectKey, err)
	}
}
