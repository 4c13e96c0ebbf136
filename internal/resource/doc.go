// Package resource bounds the work done by snapshot commits.
//
// A Controller manages three limits:
//
//   - Commits: how many collections are encoded and written concurrently
//   - Buffered bytes: how many encoded snapshot bytes may be held in memory
//   - IO: token bucket on bytes written to the blob store
//
//	rc := resource.NewController(resource.Config{
//	    MaxConcurrentCommits: 4,
//	    MaxBufferedBytes:     256 << 20,
//	    IOLimitBytesPerSec:   50 << 20,
//	})
//
//	if err := rc.AcquireCommit(ctx); err != nil {
//	    return err
//	}
//	defer rc.ReleaseCommit()
//
// All methods are safe for concurrent use, and a nil *Controller imposes no
// limits.
package resource
