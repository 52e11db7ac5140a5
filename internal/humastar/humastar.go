// Package humastar bridges Huma (REST/OpenAPI) with Datastar (SSE/hypermedia).
//
// Handlers return a [huma.StreamResponse] built with [Handler.Stream]; the
// stream body gets an [SSE] that patches rendered fragments, signals and
// scripts into the page. Browser-side calls are collected in a [Script] and
// sent as one script per response.
package humastar

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/starfederation/datastar-go/datastar"

	"github.com/joeblew999/nyc-dob-map/internal/templates"
)

// Handler is an embeddable base for Huma handlers that produce Datastar SSE
// responses.
type Handler struct {
	Renderer *templates.Renderer
}

// Stream returns a StreamResponse that calls fn with a ready SSE helper.
func (h *Handler) Stream(fn func(sse SSE)) *huma.StreamResponse {
	return &huma.StreamResponse{
		Body: func(humaCtx huma.Context) {
			fn(NewSSE(humaCtx))
		},
	}
}

// SSE wraps a Datastar SSE generator.
type SSE struct {
	*datastar.ServerSentEventGenerator
}

// NewSSE creates a Datastar SSE helper from a Huma streaming context.
func NewSSE(ctx huma.Context) SSE {
	r, w := humachi.Unwrap(ctx)
	return SSE{datastar.NewSSE(w, r)}
}

// Patch sends HTML to replace inner content at a CSS selector.
func (s SSE) Patch(html, selector string) {
	s.PatchElements(html,
		datastar.WithSelector(selector),
		datastar.WithModeInner(),
	)
}

// Error sends an error signal to the UI.
func (s SSE) Error(msg string) {
	s.MarshalAndPatchSignals(map[string]any{"error": msg})
}

// Success sends a success signal to the UI.
func (s SSE) Success(msg string) {
	s.MarshalAndPatchSignals(map[string]any{"success": msg, "error": ""})
}

// Signals sends arbitrary signals to the UI.
func (s SSE) Signals(signals map[string]any) {
	s.MarshalAndPatchSignals(signals)
}

// Run executes the collected script in the page. An empty script sends
// nothing.
func (s SSE) Run(script *Script) error {
	if script.Len() == 0 {
		return nil
	}
	return s.ExecuteScript(script.String())
}

// Script collects browser-side calls into one script body.
type Script struct {
	lines []string
}

// Call appends fn(args...) with every argument encoded as JSON.
func (sc *Script) Call(fn string, args ...any) error {
	parts := make([]string, len(args))
	for i, a := range args {
		b, err := json.Marshal(a)
		if err != nil {
			return fmt.Errorf("script %s: argument %d: %w", fn, i, err)
		}
		parts[i] = string(b)
	}
	sc.lines = append(sc.lines, fn+"("+strings.Join(parts, ", ")+");")
	return nil
}

// Len returns the number of calls collected.
func (sc *Script) Len() int { return len(sc.lines) }

// String returns the script body.
func (sc *Script) String() string { return strings.Join(sc.lines, "\n") }

// RawSignal returns one signal of a request body undecoded, so objects
// keep their key order. A missing signal is nil.
func RawSignal(body []byte, key string) (json.RawMessage, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, err
	}
	return raw[key], nil
}

// SignalsInput is an input struct for handlers that receive Datastar signals.
type SignalsInput struct {
	RawBody []byte
}

// Raw returns one signal undecoded or a Huma 400 error.
func (i *SignalsInput) Raw(key string) (json.RawMessage, error) {
	raw, err := RawSignal(i.RawBody, key)
	if err != nil {
		return nil, huma.Error400BadRequest("Invalid request data: " + err.Error())
	}
	return raw, nil
}
