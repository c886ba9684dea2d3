package discovery

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	pb "go.logdb.dev/core/protocol"
	"golang.org/x/time/rate"
)

// ErrNoMatchingMember is returned by a discovery attempt when the membership
// view holds no alive member able to serve the NodePreference.
var ErrNoMatchingMember = errors.New("no alive cluster member matches the node preference")

// DiscoveryError is returned by ClusterDiscoverer.Discover when all
// discovery attempts have failed.
type DiscoveryError struct {
	// Attempts is the number of discovery attempts made.
	Attempts int
	// Err is the error of the final attempt.
	Err error
}

func (e *DiscoveryError) Error() string {
	return fmt.Sprintf("cluster discovery failed after %d attempts: %s", e.Attempts, e.Err)
}

// Unwrap returns the error of the final attempt.
func (e *DiscoveryError) Unwrap() error { return e.Err }

// ClusterDiscoverer is a Discoverer which selects a member from a
// MemberSource's view of the cluster. Each discovery runs up to MaxAttempts
// attempts, or without bound if MaxAttempts is zero. Attempts are paced so
// that no more than one begins per interval, including attempts of
// successive Discover calls.
type ClusterDiscoverer struct {
	src         MemberSource
	pref        pb.NodePreference
	maxAttempts int
	limiter     *rate.Limiter
	shuffle     ShuffleFunc
}

// NewClusterDiscoverer returns a ClusterDiscoverer of |src|. A |maxAttempts|
// of zero or less is unbounded: attempts continue until one succeeds or
// the Context of Discover is done.
func NewClusterDiscoverer(src MemberSource, pref pb.NodePreference, maxAttempts int, interval time.Duration) *ClusterDiscoverer {
	if maxAttempts < 0 {
		maxAttempts = 0
	}
	var limit = rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &ClusterDiscoverer{
		src:         src,
		pref:        pref,
		maxAttempts: maxAttempts,
		limiter:     rate.NewLimiter(limit, 1),
		shuffle:     rand.Shuffle,
	}
}

// Discover runs discovery attempts until one selects a member, or until
// bounded attempts are exhausted, in which case a *DiscoveryError is returned.
// An error of |ctx| aborts discovery and is returned directly.
func (d *ClusterDiscoverer) Discover(ctx context.Context) (pb.Endpoint, error) {
	var err error

	for attempt := 1; ; attempt++ {
		if werr := d.limiter.Wait(ctx); werr != nil {
			if ctx.Err() != nil {
				return pb.Endpoint{}, ctx.Err()
			}
			return pb.Endpoint{}, errors.WithMessage(werr, "pacing discovery attempt")
		}

		var member pb.MemberInfo
		if member, err = d.attempt(ctx); err == nil {
			discoveryAttemptsTotal.WithLabelValues(statusOK).Inc()

			log.WithFields(log.Fields{
				"instance":   member.InstanceID,
				"state":      member.State,
				"endpoint":   member.Endpoint,
				"preference": d.pref,
				"attempt":    attempt,
			}).Info("discovered cluster member")
			return member.Endpoint, nil
		}
		discoveryAttemptsTotal.WithLabelValues(statusFail).Inc()

		if ctx.Err() != nil {
			return pb.Endpoint{}, ctx.Err()
		}
		log.WithFields(log.Fields{
			"err":         err,
			"attempt":     attempt,
			"maxAttempts": d.maxAttempts,
		}).Warn("cluster discovery attempt failed")

		if attempt == d.maxAttempts {
			return pb.Endpoint{}, &DiscoveryError{Attempts: attempt, Err: err}
		}
	}
}

func (d *ClusterDiscoverer) attempt(ctx context.Context) (pb.MemberInfo, error) {
	var members, err = d.src.Members(ctx)
	if err != nil {
		return pb.MemberInfo{}, errors.WithMessage(err, "reading cluster members")
	}
	var member, ok = SelectNode(members, d.pref, d.shuffle)
	if !ok {
		return pb.MemberInfo{}, errors.Wrapf(ErrNoMatchingMember,
			"%d members, preference %s", len(members), d.pref)
	}
	return member, nil
}
