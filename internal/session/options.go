package session

import "time"

const (
	DefaultDuration       = 30 * time.Minute
	DefaultTickInterval   = time.Second
	DefaultRequestTimeout = 5 * time.Second
	DefaultResultsRoute   = "/results"
	// DefaultSubmitRetryTicks spaces out retries of a failed submission
	// after time ran out.
	DefaultSubmitRetryTicks = 5
)

// Options tunes a Controller. Zero values fall back to the defaults above.
// RequestTimeout bounds every backend call the controller issues on its own.
type Options struct {
	Duration       time.Duration
	TickInterval   time.Duration
	RequestTimeout time.Duration
	VisitPolicy    VisitPolicy
	ResultsRoute   string
	// SubmitRetryTicks is the number of clock ticks between attempts to
	// submit after time ran out.
	SubmitRetryTicks int
	Now              func() time.Time
}

func (o Options) withDefaults() Options {
	if o.Duration <= 0 {
		o.Duration = DefaultDuration
	}
	if o.TickInterval <= 0 {
		o.TickInterval = DefaultTickInterval
	}
	if o.RequestTimeout <= 0 {
		o.RequestTimeout = DefaultRequestTimeout
	}
	if o.VisitPolicy == "" {
		o.VisitPolicy = MarkOnLeave
	}
	if o.ResultsRoute == "" {
		o.ResultsRoute = DefaultResultsRoute
	}
	if o.SubmitRetryTicks <= 0 {
		o.SubmitRetryTicks = DefaultSubmitRetryTicks
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}
