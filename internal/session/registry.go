// Package session holds the process-wide map from user identity to its
// capability handle and last-known account snapshot.
//
// The master public key is resolved at most once per registry, behind a
// singleflight group, and every cached handle is rebuilt with it. Only
// handles whose password has been verified are cached.
package session

import (
	"context"
		"errors"
	"sync"
	"time"

	"github.com/dmitrijs2005/chainkeeper/internal/capability"
	"github.com/dmitrijs2005/chainkeeper/internal/common"
	"github.com/dmitrijs2005/chainkeeper/internal/cryptox"
	"github.com/dmitrijs2005/chainkeeper/internal/ledger"
	"github.com/dmitrijs2005/chainkeeper/internal/logging"
	"github.com/dmitrijs2005/chainkeeper/internal/models"
	"github.com/patrickmn/go-cache"
	"github.com/zeebo/blake3"
	"golang.org/x/sync/singleflight"
)

const publicKeyFlight = "public-key"

type entry struct {
	digest   [32]byte
	handle   *capability.Client
	snapshot *models.Account
}

type Registry struct {
	ledger   ledger.Ledger
	logger   logging.Logger
	ttl      time.Duration
	sessions *cache.Cache
	group    singleflight.Group

	// mu guards master and the fields of every cached entry.
	mu     sync.Mutex
	master capability.Master
}

// New creates a registry for the master identity. Sessions idle for longer
// than ttl are dropped; ttl <= 0 keeps them for the process lifetime.
func New(l ledger.Ledger, m capability.Master, ttl time.Duration, logger logging.Logger) *Registry {
	expiration := ttl
	cleanup := ttl
	if ttl <= 0 {
		expiration = cache.NoExpiration
		cleanup = 0
	}
	return &Registry{
		ledger:   l,
		logger:   logger.With("module", "session"),
		ttl:      expiration,
		sessions: cache.New(expiration, cleanup),
		master:   m,
	}
}

// Master returns the master identity, including the public key once
// resolved.
func (r *Registry) Master() capability.Master {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.master
}

// Configured reports whether the master address and secret are set.
func (r *Registry) Configured() bool {
	return r.Master().Configured()
}

// Handle returns the capability handle for userKey. A session handle is
// returned when passKey matches the bound session; otherwise the handle is
// fresh and nothing is cached. Callers Bind it once the password verifies.
func (r *Registry) Handle(ctx context.Context, userKey string, passKey []byte) (*capability.Client, error) {
	m := r.Master()
	if !m.Configured() {
		return nil, common.ErrConfiguration
	}

	if m.PublicKey == "" {
		key, err := r.resolvePublicKey(ctx)
		if err != nil {
			// Reads still work without the key; the next access retries
			// the resolution.
			r.logger.Warn(ctx, "master public key unresolved", "error", err)
			return capability.New(r.ledger, m, userKey, passKey), nil
		}
		m.PublicKey = key
	}

	if passKey == nil {
		return capability.New(r.ledger, m, userKey, nil), nil
	}

	if h := r.cachedHandle(userKey, sessionDigest(userKey, passKey)); h != nil {
		return h, nil
	}
	return capability.New(r.ledger, m, userKey, passKey), nil
}

// Bind makes h the session handle of userKey. It must only be called after
// passKey has been verified against the account or used to create it. A
// session bound under another password keeps its snapshot. Handles without
// a secret or a public key are not bound.
func (r *Registry) Bind(userKey string, passKey []byte, h *capability.Client) bool {
	if h == nil || !h.HasSecret() || h.PublicKey() == "" {
		return false
	}
	digest := sessionDigest(userKey, passKey)

	r.mu.Lock()
	defer r.mu.Unlock()

	// The key may have been resolved or rotated since h was built.
	if r.master.PublicKey != "" && r.master.PublicKey != h.PublicKey() {
		h = h.WithPublicKey(r.master.PublicKey)
	}

	if v, ok := r.sessions.Get(userKey); ok {
		e := v.(*entry)
		if e.digest != digest {
			e.digest = digest
			e.handle = h
		}
		r.sessions.Set(userKey, e, r.ttl)
		return true
	}
	r.sessions.Set(userKey, &entry{digest: digest, handle: h}, r.ttl)
	return true
}

func (r *Registry) cachedHandle(userKey string, digest [32]byte) *capability.Client {
	r.mu.Lock()
	defer r.mu.Unlock()

	v, ok := r.sessions.Get(userKey)
	if !ok {
		return nil
	}
	e := v.(*entry)
	if e.digest != digest {
		return nil
	}
	// sliding expiration
	r.sessions.Set(userKey, e, r.ttl)
	return e.handle
}

// resolvePublicKey fetches the master public key once and rebuilds every
// cached handle with it. Concurrent callers share one ledger round trip.
func (r *Registry) resolvePublicKey(ctx context.Context) (string, error) {
	v, err, _ := r.group.Do(publicKeyFlight, func() (any, error) {
		if m := r.Master(); m.PublicKey != "" {
			return m.PublicKey, nil
		}

		resolver := capability.New(r.ledger, r.Master(), "", nil)
		key, err := resolver.ResolvePublicKey(ctx)
		if errors.Is(err, common.ErrorNotFound) {
			// Nothing registered for the address; the secret still
			// determines the recipient.
			key, err = cryptox.PublicKeyOf(r.Master().SecretKey)
			if err == nil {
				r.logger.Warn(ctx, "master public key not registered on ledger, derived from secret")
			}
		}
		if err != nil {
			return "", err
		}

		r.setPublicKey(key)
		r.logger.Info(ctx, "master public key resolved")
		return key, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (r *Registry) setPublicKey(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.master.PublicKey = key
	for _, item := range r.sessions.Items() {
		e := item.Object.(*entry)
		if e.handle.PublicKey() != key {
			e.handle = e.handle.WithPublicKey(key)
		}
	}
}

// Snapshot returns a copy of the cached account for userKey, if any.
func (r *Registry) Snapshot(userKey string) *models.Account {
	r.mu.Lock()
	defer r.mu.Unlock()

	v, ok := r.sessions.Get(userKey)
	if !ok {
		return nil
	}
	return v.(*entry).snapshot.Clone()
}

// Snapshots returns copies of every cached account snapshot of a live
// session, keyed by userKey.
func (r *Registry) Snapshots() map[string]*models.Account {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[string]*models.Account)
	for userKey, item := range r.sessions.Items() {
		if s := item.Object.(*entry).snapshot; s != nil {
			out[userKey] = s.Clone()
		}
	}
	return out
}

// Remember stores a snapshot on the live session of userKey. Without a
// session nothing is stored.
func (r *Registry) Remember(userKey string, account *models.Account) {
	r.mu.Lock()
	defer r.mu.Unlock()

	v, ok := r.sessions.Get(userKey)
	if !ok {
		return
	}
	v.(*entry).snapshot = account.Clone()
}

// Forget drops the snapshot of userKey but keeps its handle.
func (r *Registry) Forget(userKey string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if v, ok := r.sessions.Get(userKey); ok {
		v.(*entry).snapshot = nil
	}
}

// Evict removes the session of userKey entirely.
func (r *Registry) Evict(userKey string) {
	r.sessions.Delete(userKey)
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	return r.sessions.ItemCount()
}

func sessionDigest(userKey string, passKey []byte) [32]byte {
	h := blake3.New()
	_, _ = h.Write([]byte(userKey))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write(passKey)
	var d [32]byte
	copy(d[:], h.Sum(nil))
	return d
}
