// Package matcher wraps the external semantic-matching capability (a chat
// completion model) behind a single call: given a query and a list of
// candidate labels, return one label or a no-match signal.
package matcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"supplymatch/internal"
	"supplymatch/internal/logging"
)

const DefaultNoMatchToken = "None"

// ErrNoCandidates is returned when Match is called with an empty candidate
// list. The completer is not invoked.
var ErrNoCandidates = errors.New("matcher: empty candidate list")

// Request is one single-turn exchange with the completion model.
type Request struct {
	System    string
	Prompt    string
	MaxTokens int
}

// Completer is the external capability. Implementations make exactly one
// remote call per Complete and report transport failures as errors.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
	Name() string
}

// Profile describes what is being matched and how the model is instructed.
type Profile struct {
	// Label is the singular noun for a candidate, e.g. "supplier name".
	Label string
	// System is the fixed behavioral instruction.
	System string
	// Hint is prepended to the prompt; used for naming-convention guidance.
	Hint      string
	MaxTokens int
}

type Adapter struct {
	completer Completer
	profile   Profile
	noMatch   string
	limiter   *rate.Limiter
	timeout   time.Duration
}

type Option func(*Adapter)

func WithLimiter(l *rate.Limiter) Option {
	return func(a *Adapter) { a.limiter = l }
}

func WithTimeout(d time.Duration) Option {
	return func(a *Adapter) { a.timeout = d }
}

func WithNoMatchToken(token string) Option {
	return func(a *Adapter) {
		if strings.TrimSpace(token) != "" {
			a.noMatch = token
		}
	}
}

func NewAdapter(completer Completer, profile Profile, opts ...Option) *Adapter {
	a := &Adapter{completer: completer, profile: profile, noMatch: DefaultNoMatchToken}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Match asks the completer for the candidate closest to query. ok is false
// when the model answered with nothing or with the no-match token. The label
// is normalized but not checked against labels; callers must do that.
func (a *Adapter) Match(ctx context.Context, query string, labels []string) (string, bool, error) {
	if len(labels) == 0 {
		return "", false, ErrNoCandidates
	}

	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	if a.limiter != nil {
		if err := a.limiter.Wait(ctx); err != nil {
			return "", false, &internal.MatcherError{Provider: a.completer.Name(), Err: err}
		}
	}

	req, err := a.buildRequest(query, labels)
	if err != nil {
		return "", false, err
	}

	raw, err := a.completer.Complete(ctx, req)
	if err != nil {
		if errors.Is(err, internal.ErrMatcherUnavailable) {
			return "", false, err
		}
		return "", false, &internal.MatcherError{Provider: a.completer.Name(), Err: err}
	}

	logging.FromContext(ctx).Debug().
		Str("profile", a.profile.Label).
		Str("query", query).
		Str("raw_response", raw).
		Msg("matcher response")

	if strings.TrimSpace(raw) == "" || strings.TrimSpace(raw) == a.noMatch {
		return "", false, nil
	}
	label := Normalize(raw)
	if label == "" || label == a.noMatch {
		return "", false, nil
	}
	return label, true, nil
}

func (a *Adapter) buildRequest(query string, labels []string) (Request, error) {
	list, err := json.Marshal(labels)
	if err != nil {
		return Request{}, fmt.Errorf("encode candidates: %w", err)
	}

	var b strings.Builder
	if a.profile.Hint != "" {
		b.WriteString(a.profile.Hint)
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "I have a list of %ss: %s.\n", a.profile.Label, list)
	fmt.Fprintf(&b, "Based on the input %q, find the closest matching %s.\n", query, a.profile.Label)
	fmt.Fprintf(&b, "Only return a %s that exists in the provided list, copied exactly. If no close match can be identified, return %q.\n", a.profile.Label, a.noMatch)
	b.WriteString("Do not provide any explanation, context, or additional text.")

	return Request{
		System:    a.profile.System,
		Prompt:    b.String(),
		MaxTokens: a.profile.MaxTokens,
	}, nil
}
