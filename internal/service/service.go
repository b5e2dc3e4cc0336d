// Package service runs the list, get and tts operations over the lookup
// components.
package service

import (
	"context"
	"errors"

	"github.com/book-expert/logger"

	"github.com/book-expert/yomitan-audio/internal/audio"
	"github.com/book-expert/yomitan-audio/internal/core"
	"github.com/book-expert/yomitan-audio/internal/pitch"
	"github.com/book-expert/yomitan-audio/internal/response"
	"github.com/book-expert/yomitan-audio/internal/ttscache"
)

const (
	audioKeySuffix = "_files/"

	errMsgFileNotFound  = "File not found"
	errMsgFetchFailed   = "Audio fetch failed"
	errMsgTTSDisabled   = "TTS is disabled"
	errMsgMissingSource = "Missing audio source or file"
)

// ListRequest is a validated candidate-list lookup.
type ListRequest struct {
	Term    string
	Reading string
	Sources core.SourceSet
	// BaseURL is the public origin playback URLs point at.
	BaseURL string
	APIKey  string
}

// Service answers lookups.
type Service struct {
	aggregator *audio.Aggregator
	resolver   *pitch.Resolver
	tts        *ttscache.Orchestrator
	store      core.ObjectStore
	switches   core.Switches
	log        *logger.Logger
}

// New creates a Service. tts may be nil when switches.TTSEnabled is false.
func New(
	aggregator *audio.Aggregator,
	resolver *pitch.Resolver,
	tts *ttscache.Orchestrator,
	store core.ObjectStore,
	switches core.Switches,
	log *logger.Logger,
) *Service {
	return &Service{
		aggregator: aggregator,
		resolver:   resolver,
		tts:        tts,
		store:      store,
		switches:   switches,
		log:        log,
	}
}

// Switches returns the feature toggles the service runs with.
func (s *Service) Switches() core.Switches {
	return s.switches
}

// List returns the ranked pre-recorded clips followed by the TTS candidates.
func (s *Service) List(ctx context.Context, req ListRequest) (core.Response, error) {
	ranked, err := s.aggregator.Candidates(ctx, req.Term, req.Reading, req.Sources)
	if err != nil {
		return core.Response{}, err
	}

	links := response.NewLinks(req.BaseURL, s.switches, req.APIKey)

	var ttsCandidates []core.Candidate

	if s.switches.TTSEnabled && req.Sources.AllowsTTS() {
		catalog, resolveErr := s.resolver.Resolve(ctx, req.Term, req.Reading)
		if resolveErr != nil {
			return core.Response{}, resolveErr
		}

		ttsCandidates = ttscache.ListCandidates(s.switches, req.Sources, catalog, links)
	}

	s.log.Info("audio_list: term=%q reading=%q recorded=%d tts=%d",
		req.Term, req.Reading, len(ranked), len(ttsCandidates))

	return response.Assemble(ranked, ttsCandidates, links), nil
}

// Get returns a pre-recorded clip. file may be "folder/file".
func (s *Service) Get(ctx context.Context, source, file string) ([]byte, error) {
	if source == "" || file == "" {
		return nil, core.BadRequest(errMsgMissingSource)
	}

	key := source + audioKeySuffix + file
	s.log.Info("audio_get: key=%s", key)

	data, err := s.store.Download(ctx, key)
	if err != nil {
		if errors.Is(err, core.ErrObjectNotFound) {
			return nil, core.NotFound(errMsgFileNotFound)
		}

		s.log.Error("audio_get_failed: key=%s: %v", key, err)

		return nil, core.Upstream(errMsgFetchFailed, err)
	}

	return data, nil
}

// TTS returns synthesized audio for one pitch candidate, from the cache when
// possible.
func (s *Service) TTS(ctx context.Context, term, reading, pitchAccent string) ([]byte, error) {
	if !s.switches.TTSEnabled || s.tts == nil {
		return nil, core.NotFound(errMsgTTSDisabled)
	}

	result, err := s.tts.Resolve(ctx, term, reading, pitchAccent)
	if err != nil {
		return nil, err
	}

	return result.Audio, nil
}
