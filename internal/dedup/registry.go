package dedup

import (
	"github.com/John-Robertt/clashforge/internal/model"
	"github.com/rs/zerolog"
)

// Registry is the accepted set of one compilation run. It is not safe for
// concurrent use; each run builds its own.
type Registry struct {
	policy   KeyPolicy
	names    *Namer
	keys     map[string]int // identity key -> index in accepted
	accepted []model.Proxy
	logger   zerolog.Logger
}

// NewRegistry returns an empty registry. DIRECT and REJECT are reserved so
// no proxy can shadow a sentinel.
func NewRegistry(policy KeyPolicy, logger zerolog.Logger) *Registry {
	return &Registry{
		policy: policy,
		names:  NewNamer(model.Direct, model.Reject),
		keys:   make(map[string]int),
		logger: logger.With().Str("component", "dedup").Logger(),
	}
}

// Accept adds p unless an entry with the same identity key is already
// present. On success the returned entry carries its final display name.
// On a duplicate skipped is true and the returned entry is the one retained.
func (r *Registry) Accept(p model.Proxy) (accepted model.Proxy, skipped bool) {
	key := IdentityKey(p, r.policy)
	if i, ok := r.keys[key]; ok {
		kept := r.accepted[i]
		r.logger.Debug().Str("proxy", p.Name).Str("kept", kept.Name).Msg("duplicate proxy skipped")
		return kept, true
	}

	seed := p.Name
	name, renamed := r.names.Claim(seed)
	if renamed {
		r.logger.Debug().Str("seed", seed).Str("name", name).Msg("proxy renamed")
	}
	p.Name = name
	r.keys[key] = len(r.accepted)
	r.accepted = append(r.accepted, p)
	return p, false
}

// Proxies returns the accepted entries in insertion order.
func (r *Registry) Proxies() []model.Proxy {
	return append([]model.Proxy(nil), r.accepted...)
}
