// Package settings stores per-user pagination preferences: the remote
// userSettings document is the source of truth, a device-local copy serves
// reads.
package settings

import (
	"context"
	"encoding/json"
	"fmt"
	"math"

	"github.com/catalyst-codex/codex/shared/docstore"
	"github.com/catalyst-codex/codex/shared/domain"
	"github.com/catalyst-codex/codex/shared/errors"
	"github.com/catalyst-codex/codex/shared/logger"
)

const (
	LocalKey = "userSettings"
	MinValue = 1
	MaxValue = 100
)

type Remote interface {
	Get(ctx context.Context, collection, id string) (docstore.Document, error)
	Set(ctx context.Context, collection, id string, data any) error
}

type Local interface {
	GetItem(ctx context.Context, namespace, key string) (string, bool, error)
	SetItem(ctx context.Context, namespace, key, value string) error
	RemoveItem(ctx context.Context, namespace, key string) error
}

type Store struct {
	remote Remote
	local  Local
}

func New(remote Remote, local Local) *Store {
	return &Store{remote: remote, local: local}
}

// Read returns the locally cached preferences of uid. It never fails: each
// field missing, malformed or not a positive integer falls back to the default.
func (s *Store) Read(ctx context.Context, uid domain.UserId) domain.UserSettings {
	if uid == "" {
		return domain.DefaultUserSettings()
	}
	raw, found, err := s.local.GetItem(ctx, string(uid), LocalKey)
	if err != nil {
		logger.Log.Warn("failed to read cached settings", "uid", uid, "error", err)
		return domain.DefaultUserSettings()
	}
	if !found {
		return domain.DefaultUserSettings()
	}
	return parse([]byte(raw))
}

func (s *Store) ThreadsPerPage(ctx context.Context, uid domain.UserId) int {
	return s.Read(ctx, uid).ThreadsPerPage
}

func (s *Store) PostsPerPage(ctx context.Context, uid domain.UserId) int {
	return s.Read(ctx, uid).PostsPerPage
}

func (s *Store) ProfilePostsPerPage(ctx context.Context, uid domain.UserId) int {
	return s.Read(ctx, uid).ProfilePostsPerPage
}

// Write replaces the remote record wholesale, then caches it locally.
// Fields outside 1..100 are rejected, see Validate.
// Concurrent writers race, the last one wins.
func (s *Store) Write(ctx context.Context, sess domain.Session, settings domain.UserSettings) (domain.UserSettings, error) {
	if !sess.Authenticated() {
		return domain.UserSettings{}, errors.NotAuthenticated()
	}
	if err := Validate(settings); err != nil {
		return domain.UserSettings{}, err
	}
	if err := s.remote.Set(ctx, domain.UserSettingsCollection, string(sess.Uid), settings); err != nil {
		return domain.UserSettings{}, fmt.Errorf("failed to save settings: %w", err)
	}
	s.cache(ctx, sess.Uid, settings)
	return settings, nil
}

// Fetch reads the remote record. A missing record yields the defaults, a
// partial one is merged over them.
func (s *Store) Fetch(ctx context.Context, sess domain.Session) (domain.UserSettings, error) {
	if !sess.Authenticated() {
		return domain.UserSettings{}, errors.NotAuthenticated()
	}
	doc, err := s.remote.Get(ctx, domain.UserSettingsCollection, string(sess.Uid))
	if errors.IsNotFound(err) {
		return domain.DefaultUserSettings(), nil
	}
	if err != nil {
		return domain.UserSettings{}, fmt.Errorf("failed to fetch settings: %w", err)
	}
	return parse(doc.Data), nil
}

// Refresh pulls the remote record into the local cache, picking up changes
// made on another device.
func (s *Store) Refresh(ctx context.Context, sess domain.Session) (domain.UserSettings, error) {
	settings, err := s.Fetch(ctx, sess)
	if err != nil {
		return domain.UserSettings{}, err
	}
	s.cache(ctx, sess.Uid, settings)
	return settings, nil
}

// Clear drops the cached record of uid.
func (s *Store) Clear(ctx context.Context, uid domain.UserId) {
	if uid == "" {
		return
	}
	if err := s.local.RemoveItem(ctx, string(uid), LocalKey); err != nil {
		logger.Log.Warn("failed to clear cached settings", "uid", uid, "error", err)
	}
}

func (s *Store) cache(ctx context.Context, uid domain.UserId, settings domain.UserSettings) {
	data, err := json.Marshal(settings)
	if err == nil {
		err = s.local.SetItem(ctx, string(uid), LocalKey, string(data))
	}
	if err != nil {
		logger.Log.Warn("failed to cache settings", "uid", uid, "error", err)
	}
}

// Validate accepts each field in [MinValue, MaxValue], 1..100 inclusive.
// Positive values above MaxValue are rejected to bound the page size.
func Validate(s domain.UserSettings) error {
	fields := []struct {
		name  string
		value int
	}{
		{"threadsPerPage", s.ThreadsPerPage},
		{"postsPerPage", s.PostsPerPage},
		{"profilePostsPerPage", s.ProfilePostsPerPage},
	}
	for _, f := range fields {
		if f.value < MinValue || f.value > MaxValue {
			return errors.Validation(fmt.Sprintf("%s must be between %d and %d", f.name, MinValue, MaxValue))
		}
	}
	return nil
}

func parse(data []byte) domain.UserSettings {
	settings := domain.DefaultUserSettings()
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return settings
	}
	settings.ThreadsPerPage = positiveInt(fields["threadsPerPage"], settings.ThreadsPerPage)
	settings.PostsPerPage = positiveInt(fields["postsPerPage"], settings.PostsPerPage)
	settings.ProfilePostsPerPage = positiveInt(fields["profilePostsPerPage"], settings.ProfilePostsPerPage)
	return settings
}

func positiveInt(raw json.RawMessage, fallback int) int {
	if raw == nil {
		return fallback
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return fallback
	}
	if f < 1 || f != math.Trunc(f) || f > math.MaxInt32 {
		return fallback
	}
	return int(f)
}
