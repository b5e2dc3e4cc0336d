// Package core defines the domain types and collaborator interfaces shared by
// the pronunciation audio service.
package core

import (
	"context"
	"errors"
)

// ErrObjectNotFound is returned by an ObjectStore when the key is absent.
var ErrObjectNotFound = errors.New("object not found")

// ObjectStore defines the interface for interacting with a key-value blob store.
// Download returns an error wrapping ErrObjectNotFound for a missing key.
type ObjectStore interface {
	Download(ctx context.Context, key string) ([]byte, error)
	Upload(ctx context.Context, key string, data []byte) error
}

// AudioQuery selects pre-recorded audio records.
type AudioQuery struct {
	Term    string
	Reading string
	Sources SourceSet
}

// AudioDataset returns pre-recorded audio records in dataset order.
type AudioDataset interface {
	QueryAudio(ctx context.Context, query AudioQuery) ([]AudioEntry, error)
}

// PitchDataset returns known pitch-accent records in dataset order.
type PitchDataset interface {
	QueryPitch(ctx context.Context, term, reading string) ([]PitchEntry, error)
}

// TextType tells the synthesizer how to interpret SynthesisInput.Text.
type TextType string

const (
	// TextTypePlain is ordinary text.
	TextTypePlain TextType = "text"
	// TextTypeSSML is text wrapped in speech markup annotations.
	TextTypeSSML TextType = "ssml"
)

// SynthesisInput is the provider-neutral description of one synthesis call.
type SynthesisInput struct {
	Text     string
	TextType TextType
}

// Synthesizer turns text into encoded audio bytes.
type Synthesizer interface {
	Synthesize(ctx context.Context, input SynthesisInput) ([]byte, error)
}

// Switches are the global feature toggles threaded into component calls.
type Switches struct {
	AuthEnabled bool
	TTSEnabled  bool
}
