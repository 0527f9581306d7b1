package user

import (
	"context"

	"github.com/originalcoast/igbot/internal/igapi"
	"github.com/originalcoast/igbot/internal/logger"
	"github.com/originalcoast/igbot/internal/metrics"
	"golang.org/x/sync/singleflight"
)

// ProfileFetcher loads a user's public profile from the platform.
type ProfileFetcher interface {
	GetUserProfile(ctx context.Context, userID string) (*igapi.Profile, error)
}

// Resolver returns the directory entry for a sender, fetching the profile on
// first contact. Concurrent first contacts for one id share a single fetch.
type Resolver struct {
	dir     Directory
	fetcher ProfileFetcher
	metrics *metrics.Metrics
	logger  *logger.Logger
	group   singleflight.Group
}

// NewResolver creates a Resolver. metrics and log may be nil.
func NewResolver(dir Directory, fetcher ProfileFetcher, m *metrics.Metrics, log *logger.Logger) *Resolver {
	if log == nil {
		log = logger.New("error")
	}
	return &Resolver{
		dir:     dir,
		fetcher: fetcher,
		metrics: m,
		logger:  log.WithModule("user"),
	}
}

// Resolve returns the user with id, creating it when unseen.
// A failed profile fetch leaves the name blank; the next call retries.
func (r *Resolver) Resolve(ctx context.Context, id string) User {
	if u, ok := r.dir.Get(id); ok && u.HasProfile {
		return u
	}

	v, _, shared := r.group.Do(id, func() (any, error) {
		u, ok := r.dir.Get(id)
		if !ok {
			u = r.dir.Create(id)
			r.metrics.SetKnownUsers(r.dir.Len())
		}
		if u.HasProfile {
			return u, nil
		}

		profile, err := r.fetcher.GetUserProfile(ctx, id)
		if err != nil {
			r.metrics.RecordProfileFetch("error")
			r.logger.WithError(err).WithField("user_id", id).Warn("Profile fetch failed; continuing without a name")
			return u, nil
		}
		r.metrics.RecordProfileFetch("success")

		r.dir.SetProfile(id, Profile{Name: profile.Name, PictureURL: profile.ProfilePic})
		u, _ = r.dir.Get(id)
		r.logger.WithField("user_id", id).Debug("Profile stored")
		return u, nil
	})
	if shared {
		r.metrics.RecordSingleflightDedup("user")
	}
	return v.(User)
}
