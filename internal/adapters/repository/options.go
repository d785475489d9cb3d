package repository

import "github.com/okian/goalcast/pkg/logger"

// Option applies a configuration option to a store.
type Option func(*options)

type options struct {
	log logger.Logger
}

func defaultOptions() options {
	return options{log: logger.Get().Named("repository")}
}

// WithLogger sets the store logger.
func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}
