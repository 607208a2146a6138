package provider

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// probeTimeout bounds an availability check so a hung backend cannot stall
// provider selection.
const probeTimeout = 2 * time.Second

type group struct {
	ordered     []Provider // registration order is the fallback priority
	defaultName string
}

func (g *group) byName(name string) Provider {
	for _, p := range g.ordered {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// Registry holds the known providers per capability and picks one for each
// request. The first provider registered for a capability becomes its
// default; when the preferred provider is not usable, the others are tried
// in registration order.
//
// Providers read their configuration on every call, so settings changes take
// effect without re-registration.
type Registry struct {
	// OnFallback, when set, observes a request being served by a
	// different provider than the preferred one.
	OnFallback func(cap Capability, from, to string)

	mu     sync.Mutex
	groups map[Capability]*group
	stt    map[string]Transcriber
	enrich map[string]Enricher
}

func NewRegistry() *Registry {
	return &Registry{
		groups: map[Capability]*group{},
		stt:    map[string]Transcriber{},
		enrich: map[string]Enricher{},
	}
}

func (r *Registry) RegisterTranscriber(t Transcriber) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.register(SpeechToText, t)
	r.stt[t.Name()] = t
}

func (r *Registry) RegisterEnricher(e Enricher) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.register(TextEnrichment, e)
	r.enrich[e.Name()] = e
}

// register must run under the lock. Re-registering a name replaces the
// instance but keeps its position in the fallback order.
func (r *Registry) register(cap Capability, p Provider) {
	g := r.groups[cap]
	if g == nil {
		g = &group{}
		r.groups[cap] = g
	}
	for i, q := range g.ordered {
		if q.Name() == p.Name() {
			g.ordered[i] = p
			return
		}
	}
	g.ordered = append(g.ordered, p)
	if g.defaultName == "" {
		g.defaultName = p.Name()
	}
}

// SetDefault makes name the preferred provider for a capability.
func (r *Registry) SetDefault(cap Capability, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	g := r.groups[cap]
	if g == nil || g.byName(name) == nil {
		return fmt.Errorf("%w: no %s provider named %q", ErrProviderNotFound, cap, name)
	}
	g.defaultName = name
	return nil
}

// Default reports the current default provider name for a capability, empty
// if nothing is registered.
func (r *Registry) Default(cap Capability) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if g := r.groups[cap]; g != nil {
		return g.defaultName
	}
	return ""
}

// ResolveTranscriber returns the named provider, or the default when name is
// empty.
func (r *Registry) ResolveTranscriber(name string) (Transcriber, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, err := r.resolve(SpeechToText, name)
	if err != nil {
		return nil, err
	}
	return r.stt[p.Name()], nil
}

// ResolveEnricher returns the named provider, or the default when name is
// empty.
func (r *Registry) ResolveEnricher(name string) (Enricher, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, err := r.resolve(TextEnrichment, name)
	if err != nil {
		return nil, err
	}
	return r.enrich[p.Name()], nil
}

func (r *Registry) resolve(cap Capability, name string) (Provider, error) {
	g := r.groups[cap]
	if g == nil {
		return nil, fmt.Errorf("%w: no %s providers registered", ErrProviderNotFound, cap)
	}
	if name == "" {
		name = g.defaultName
	}
	p := g.byName(name)
	if p == nil {
		return nil, fmt.Errorf("%w: no %s provider named %q", ErrProviderNotFound, cap, name)
	}
	return p, nil
}

// Transcribers lists the registered speech-to-text providers in fallback
// order.
func (r *Registry) Transcribers() []Transcriber {
	r.mu.Lock()
	defer r.mu.Unlock()
	g := r.groups[SpeechToText]
	if g == nil {
		return nil
	}
	out := make([]Transcriber, 0, len(g.ordered))
	for _, p := range g.ordered {
		out = append(out, r.stt[p.Name()])
	}
	return out
}

// Enrichers lists the registered text-enrichment providers in fallback order.
func (r *Registry) Enrichers() []Enricher {
	r.mu.Lock()
	defer r.mu.Unlock()
	g := r.groups[TextEnrichment]
	if g == nil {
		return nil
	}
	out := make([]Enricher, 0, len(g.ordered))
	for _, p := range g.ordered {
		out = append(out, r.enrich[p.Name()])
	}
	return out
}

// candidates snapshots the probe order: preferred (or default) first, then
// the rest in registration order.
func (r *Registry) candidates(cap Capability, preferred string) []Provider {
	r.mu.Lock()
	defer r.mu.Unlock()
	g := r.groups[cap]
	if g == nil {
		return nil
	}
	first := preferred
	if first == "" {
		first = g.defaultName
	}
	out := make([]Provider, 0, len(g.ordered))
	if p := g.byName(first); p != nil {
		out = append(out, p)
	}
	for _, p := range g.ordered {
		if p.Name() != first {
			out = append(out, p)
		}
	}
	return out
}

// selectAvailable probes candidates until one is both configured and
// available. Probes run outside the registry lock; each gets its own
// deadline.
func (r *Registry) selectAvailable(ctx context.Context, cap Capability, preferred string) Provider {
	cands := r.candidates(cap, preferred)
	for _, p := range cands {
		if !p.Configured() {
			continue
		}
		probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
		ok := p.Available(probeCtx)
		cancel()
		if !ok {
			continue
		}
		if p.Name() != cands[0].Name() && r.OnFallback != nil {
			r.OnFallback(cap, cands[0].Name(), p.Name())
		}
		return p
	}
	return nil
}

// SelectTranscriber returns the first usable speech-to-text provider, trying
// the preferred one first.
func (r *Registry) SelectTranscriber(ctx context.Context, preferred string) (Transcriber, bool) {
	p := r.selectAvailable(ctx, SpeechToText, preferred)
	if p == nil {
		return nil, false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stt[p.Name()], true
}

// SelectEnricher returns the first usable text-enrichment provider, trying
// the preferred one first.
func (r *Registry) SelectEnricher(ctx context.Context, preferred string) (Enricher, bool) {
	p := r.selectAvailable(ctx, TextEnrichment, preferred)
	if p == nil {
		return nil, false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.enrich[p.Name()], true
}

// Transcribe routes audio to the first usable speech-to-text provider. A
// provider's error passes through unchanged; the registry only raises its
// own Error when it cannot even find a candidate.
func (r *Registry) Transcribe(ctx context.Context, audio []byte, language, preferred string) (*Transcription, error) {
	t, ok := r.SelectTranscriber(ctx, preferred)
	if !ok {
		return nil, New("", CodeNoProvider, "no speech-to-text provider is configured and reachable")
	}
	return t.Transcribe(ctx, audio, language)
}

// Enrich routes a transcript to the first usable text-enrichment provider,
// with the same pass-through contract as Transcribe.
func (r *Registry) Enrich(ctx context.Context, text string, mode Mode, opts ModeOptions, preferred string) (string, error) {
	e, ok := r.SelectEnricher(ctx, preferred)
	if !ok {
		return "", New("", CodeNoProvider, "no text-enrichment provider is configured and reachable")
	}
	return e.Process(ctx, text, mode, opts)
}
