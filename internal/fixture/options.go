package fixture

import (
	"time"

	"github.com/firefly-engineering/fixture-ctl/internal/validator"
)

// Option configures a Creator or Loader.
type Option func(*options)

type options struct {
	validator        *validator.Validator
	fixtureValidator validator.FixtureValidator
	onTransition     func(Transition)
	now              func() time.Time
}

func newOptions(opts []Option) *options {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.validator == nil {
		o.validator = validator.New()
	}
	if o.fixtureValidator == nil {
		o.fixtureValidator = o.validator
	}
	if o.now == nil {
		o.now = time.Now
	}
	return o
}

// WithValidator sets the validator used for checksums and fixture checks.
func WithValidator(v *validator.Validator) Option {
	return func(o *options) {
		o.validator = v
	}
}

// WithFixtureValidator sets the pre-flight validator used by a Loader,
// e.g. a validator.CachedValidator shared across test loads.
func WithFixtureValidator(v validator.FixtureValidator) Option {
	return func(o *options) {
		o.fixtureValidator = v
	}
}

// WithTransitionHook registers a function called on every load phase
// change. The hook runs synchronously and must not block.
func WithTransitionHook(fn func(Transition)) Option {
	return func(o *options) {
		o.onTransition = fn
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}
