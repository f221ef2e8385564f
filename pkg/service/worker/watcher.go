package worker

import (
	"context"
	"time"

	"github.com/firebook-app/firebook/pkg/domain/interfaces"
	"github.com/firebook-app/firebook/pkg/domain/model"
	"github.com/firebook-app/firebook/pkg/domain/types"
	"github.com/firebook-app/firebook/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

const DefaultWatchRetryInterval = 10 * time.Second

// Enqueuer accepts jobs for later execution
type Enqueuer interface {
	Enqueue(ctx context.Context, job model.Job) error
}

// BookmarkWatcher turns bookmark creation events into enrich and screenshot
// jobs. The two jobs are independent and may run in any order.
//
// Architecture assumptions:
// - Single server instance; several instances would each enqueue the same
//   jobs, which the stage guards tolerate
// - Bookmarks created while the stream is reconnecting are not replayed
//   unless replay is enabled; run backfill to catch up
type BookmarkWatcher struct {
	bookmarks     interfaces.BookmarkRepository
	enqueuer      Enqueuer
	replay        bool
	retryInterval time.Duration
	cancel        context.CancelFunc
	doneCh        chan struct{}
}

type WatcherOption func(*BookmarkWatcher)

// WithReplay also enqueues jobs for bookmarks that already exist
func WithReplay(replay bool) WatcherOption {
	return func(w *BookmarkWatcher) {
		w.replay = replay
	}
}

func WithRetryInterval(d time.Duration) WatcherOption {
	return func(w *BookmarkWatcher) {
		if d > 0 {
			w.retryInterval = d
		}
	}
}

func NewBookmarkWatcher(bookmarks interfaces.BookmarkRepository, enqueuer Enqueuer, opts ...WatcherOption) *BookmarkWatcher {
	w := &BookmarkWatcher{
		bookmarks:     bookmarks,
		enqueuer:      enqueuer,
		retryInterval: DefaultWatchRetryInterval,
		doneCh:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start begins watching in a background goroutine and does not block
func (w *BookmarkWatcher) Start(ctx context.Context) error {
	logging.Default().Info("Bookmark watcher starting", "replay", w.replay)

	ctx, w.cancel = context.WithCancel(ctx)
	go w.run(ctx)
	return nil
}

// Stop cancels the watch and waits for the loop to exit
func (w *BookmarkWatcher) Stop() {
	logging.Default().Info("Bookmark watcher stopping")
	if w.cancel != nil {
		w.cancel()
		<-w.doneCh
	}
	logging.Default().Info("Bookmark watcher stopped")
}

func (w *BookmarkWatcher) run(ctx context.Context) {
	defer close(w.doneCh)

	replay := w.replay
	for {
		err := w.bookmarks.WatchCreated(ctx, replay, w.handle)
		if ctx.Err() != nil {
			return
		}
		replay = false

		logging.Default().Error("Bookmark watch stream ended (will reconnect)",
			"error", errString(err),
			"retry_in", w.retryInterval.String())

		select {
		case <-time.After(w.retryInterval):
		case <-ctx.Done():
			return
		}
	}
}

func (w *BookmarkWatcher) handle(ctx context.Context, bookmark *model.Bookmark) error {
	for _, op := range types.AllJobOperations() {
		job := model.NewJob(bookmark.OwnerID, bookmark.ID, op)
		if err := w.enqueuer.Enqueue(ctx, job); err != nil {
			return goerr.Wrap(err, "failed to enqueue job",
				goerr.V("owner_id", bookmark.OwnerID),
				goerr.V("bookmark_id", bookmark.ID),
				goerr.V("operation", op))
		}
	}
	return nil
}

func errString(err error) string {
	if err == nil {
		return "stream closed"
	}
	return err.Error()
}
