// Package plugin is the application layer on top of the transport: a Router
// fans checksum-valid frames out to registered plugins, each of which
// declares the message ids it consumes.
package plugin

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/musyafaarif/mavros/mavlink"
)

// Plugin consumes decoded frames for a declared set of message ids.
type Plugin interface {
	Name() string
	MessageIDs() []uint8
	HandleFrame(f *mavlink.Frame)
}

// Router dispatches frames to plugins. HandleFrame is invoked from the
// transport's read goroutine; plugins therefore must not block in it.
type Router struct {
	log zerolog.Logger

	mu      sync.RWMutex
	plugins map[uint8][]Plugin
}

// NewRouter creates an empty Router. A nil logger disables logging.
func NewRouter(log *zerolog.Logger) *Router {
	l := zerolog.Nop()
	if log != nil {
		l = *log
	}
	return &Router{
		log:     l,
		plugins: make(map[uint8][]Plugin),
	}
}

// Register subscribes p to every frame whose message id it declares.
func (r *Router) Register(p Plugin) {
	r.mu.Lock()
	for _, id := range p.MessageIDs() {
		r.plugins[id] = append(r.plugins[id], p)
	}
	r.mu.Unlock()
	r.log.Info().Str("plugin", p.Name()).Msg("plugin registered")
}

// HandleFrame delivers f to every plugin subscribed to its message id. It
// satisfies mavlink.FrameHandler.
func (r *Router) HandleFrame(f *mavlink.Frame) {
	r.mu.RLock()
	subs := r.plugins[f.MsgID]
	r.mu.RUnlock()

	for _, p := range subs {
		p.HandleFrame(f)
	}
}
