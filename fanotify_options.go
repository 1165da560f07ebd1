//go:build linux
// +build linux

package fanotify

import "go.uber.org/zap"

// Option configures a Group at construction time.
type Option func(*Group)

// WithLogger sets the logger used by the group. Groups log nothing unless a
// logger is supplied.
func WithLogger(logger *zap.Logger) Option {
	return func(g *Group) {
		if logger != nil {
			g.logger = logger
		}
	}
}
