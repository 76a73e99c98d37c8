// Package mock provides test doubles for the stt package interfaces.
//
// Use Provider to return a fixed Transcript without running inference and to
// verify which requests the caller made. Set OnTranscribe to observe the audio
// file while it still exists, e.g. to assert that temporary artifacts are
// removed after the call returns.
//
// Example:
//
//	p := &mock.Provider{Transcript: &stt.Transcript{Text: "Kamla Harris spoke"}}
//	t, _ := p.Transcribe(ctx, stt.Request{AudioPath: path})
package mock

import (
	"context"
	"sync"

	"github.com/MrWong99/stumpscribe/pkg/provider/stt"
)

// TranscribeCall records a single invocation of Provider.Transcribe.
type TranscribeCall struct {
	// Ctx is the context passed to Transcribe.
	Ctx context.Context
	// Req is the Request passed to Transcribe.
	Req stt.Request
}

// Provider is a mock implementation of stt.Provider.
type Provider struct {
	mu sync.Mutex

	// Transcript is returned by Transcribe. If nil, an empty Transcript is
	// returned.
	Transcript *stt.Transcript

	// TranscribeErr, if non-nil, is returned as the error from Transcribe.
	TranscribeErr error

	// OnTranscribe, if non-nil, is called with the request before the result
	// is returned. It runs outside the Provider's lock.
	OnTranscribe func(req stt.Request)

	// TranscribeCalls records every call to Transcribe.
	TranscribeCalls []TranscribeCall
}

// Transcribe records the call and returns a copy of Transcript, TranscribeErr.
func (p *Provider) Transcribe(ctx context.Context, req stt.Request) (*stt.Transcript, error) {
	p.mu.Lock()
	p.TranscribeCalls = append(p.TranscribeCalls, TranscribeCall{Ctx: ctx, Req: req})
	hook := p.OnTranscribe
	out, err := p.Transcript, p.TranscribeErr
	p.mu.Unlock()

	if hook != nil {
		hook(req)
	}
	if err != nil {
		return nil, err
	}
	if out == nil {
		return &stt.Transcript{}, nil
	}
	cp := *out
	return &cp, nil
}

// CallCount returns the number of Transcribe calls. Thread-safe.
func (p *Provider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.TranscribeCalls)
}

// Reset clears all recorded calls. Thread-safe.
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.TranscribeCalls = nil
}

// Ensure Provider implements stt.Provider at compile time.
var _ stt.Provider = (*Provider)(nil)
