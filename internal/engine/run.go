// Package engine orchestrates a pipeline session: index the platform, scan
// the source store for deliverable videos, transfer them through a worker
// pool, duplicate template campaigns for each upload, and poll until the
// uploaded videos finish processing.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/mediaops/adpipe/internal/config"
	"github.com/mediaops/adpipe/internal/metrics"
	"github.com/mediaops/adpipe/internal/pattern"
	"github.com/mediaops/adpipe/internal/platform"
	"github.com/mediaops/adpipe/internal/safety"
	"github.com/mediaops/adpipe/internal/source"
	"github.com/mediaops/adpipe/internal/store"
	"github.com/mediaops/adpipe/internal/workflow"
)

// Source is the slice of the file store the runner needs.
type Source interface {
	Downloader
	Walk(ctx context.Context, folder string, fn func(source.File) error) error
	ListJobFolders(ctx context.Context, root string, min, max int) ([]source.Job, error)
}

// Platform is the slice of the ads client the runner needs.
type Platform interface {
	platform.Lister
	workflow.Platform
	Uploader
	ReloadVideo(ctx context.Context, id string) (platform.Video, bool, error)
}

// Runner executes pipeline sessions and records their outcome in the store.
type Runner struct {
	cfg      *config.Config
	store    *store.Store
	source   Source
	platform Platform
	matcher  *pattern.Matcher
	metrics  *metrics.Metrics
	logger   *slog.Logger

	// SkipAds suppresses the duplication stage; uploads and polling still run.
	SkipAds bool
	// DryRun stops after the scan stage and only reports what would be
	// uploaded. Nothing is written to the store.
	DryRun bool
}

// NewRunner creates a Runner.
func NewRunner(cfg *config.Config, st *store.Store, src Source, pl Platform, m *metrics.Metrics, logger *slog.Logger) *Runner {
	if m == nil {
		m = metrics.New()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		cfg:      cfg,
		store:    st,
		source:   src,
		platform: pl,
		matcher:  pattern.NewMatcher(cfg.Pattern.Extensions),
		metrics:  m,
		logger:   logger,
	}
}

// uploadedFile pairs a source file with the platform video it became.
type uploadedFile struct {
	file  source.File
	video platform.Video
}

// Run executes one session end to end. The session record is moved to
// exactly one terminal status: error if any stage failed hard, success
// otherwise. Per-file failures do not fail the session.
func (r *Runner) Run(ctx context.Context) error {
	if r.DryRun {
		return r.dryRun(ctx)
	}

	sessionID, err := r.store.CreateSession()
	if err != nil {
		return err
	}

	r.metrics.RunInProgress.Set(1)
	defer r.metrics.RunInProgress.Set(0)
	r.logger.Info("session started", "session", sessionID)

	if err := r.run(ctx, sessionID); err != nil {
		if markErr := r.store.MarkSessionError(sessionID, err.Error()); markErr != nil {
			r.logger.Error("failed to mark session error", "session", sessionID, "error", markErr)
		}
		return err
	}

	if err := r.store.MarkSessionSuccess(sessionID); err != nil {
		return err
	}
	r.logger.Info("session completed", "session", sessionID)
	return nil
}

func (r *Runner) run(ctx context.Context, sessionID int64) error {
	idx, err := r.buildIndex(ctx)
	if err != nil {
		return err
	}

	files, err := r.scan(ctx, idx)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		r.logger.Info("no new deliverable files found")
		return nil
	}
	r.logger.Info("files to upload", "count", len(files))

	scratch, err := r.scratchDir()
	if err != nil {
		return err
	}
	defer os.RemoveAll(scratch)

	uploaded, err := r.upload(ctx, sessionID, idx, files, scratch)
	if err != nil {
		return err
	}

	if r.SkipAds {
		r.logger.Info("ad duplication skipped", "uploaded", len(uploaded))
	} else {
		r.createAds(ctx, idx, uploaded)
	}
	r.poll(ctx, idx, uploaded)
	return nil
}

// dryRun indexes and scans like a real session but stops before any
// download, upload, or store write.
func (r *Runner) dryRun(ctx context.Context) error {
	idx, err := r.buildIndex(ctx)
	if err != nil {
		return err
	}
	files, err := r.scan(ctx, idx)
	if err != nil {
		return err
	}
	for _, f := range files {
		r.logger.Info("would upload", "name", f.Name, "path", f.Path)
	}
	r.logger.Info("dry run complete", "count", len(files))
	return nil
}

// buildIndex builds the platform index, backing off through the configured
// cooldown when the platform is rate limiting. Rounds are bounded; anything
// other than a rate limit fails immediately.
func (r *Runner) buildIndex(ctx context.Context) (*platform.Index, error) {
	for round := 1; ; round++ {
		idx, err := platform.BuildIndex(ctx, r.platform, r.logger)
		if err == nil {
			return idx, nil
		}
		if !platform.IsRateLimit(err) || round >= r.cfg.Upload.MaxRetryRounds {
			return nil, err
		}
		r.metrics.RateLimitHitsTotal.Inc()
		r.logger.Warn("rate limited while indexing, cooling down",
			"round", round, "cooldown", r.cfg.Upload.RateLimitCooldown.Std())
		if err := sleepCtx(ctx, r.cfg.Upload.RateLimitCooldown.Std()); err != nil {
			return nil, err
		}
	}
}

// scan walks the source store and returns the deliverable files that do not
// already exist as platform videos. With a job window configured, only
// matching job folders under the root are walked; otherwise the whole root
// is.
func (r *Runner) scan(ctx context.Context, idx *platform.Index) ([]source.File, error) {
	var out []source.File
	seen := make(map[string]bool)

	collect := func(f source.File) error {
		r.metrics.FilesScannedTotal.Inc()
		if !r.matcher.IsDeliverable(f.Name) {
			return nil
		}
		r.metrics.FilesMatchedTotal.Inc()
		if seen[f.Name] {
			r.logger.Warn("duplicate deliverable name, keeping first", "name", f.Name, "path", f.Path)
			return nil
		}
		seen[f.Name] = true
		if !idx.ShouldUpload(f.Name) {
			r.metrics.FilesSkippedTotal.Inc()
			r.logger.Debug("video already uploaded", "name", f.Name)
			return nil
		}
		out = append(out, f)
		return nil
	}

	if r.cfg.Source.JobMax > 0 {
		jobs, err := r.source.ListJobFolders(ctx, r.cfg.Source.RootFolder, r.cfg.Source.JobMin, r.cfg.Source.JobMax)
		if err != nil {
			return nil, err
		}
		r.logger.Info("job folders in window", "count", len(jobs),
			"min", r.cfg.Source.JobMin, "max", r.cfg.Source.JobMax)
		for _, job := range jobs {
			if err := r.source.Walk(ctx, job.Path, collect); err != nil {
				return nil, err
			}
		}
		return out, nil
	}

	if err := r.source.Walk(ctx, r.cfg.Source.RootFolder, collect); err != nil {
		return nil, err
	}
	return out, nil
}

// scratchDir creates a session-scoped directory under the configured
// scratch root.
func (r *Runner) scratchDir() (string, error) {
	dir, err := safety.SafeJoinUnder(r.cfg.ScratchDir, uuid.NewString())
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create scratch directory: %w", err)
	}
	return dir, nil
}

// upload transfers files in bounded retry rounds. Rate-limited tasks are
// requeued for the next round after a cooldown; hard failures are recorded
// and not retried. Successful uploads are added to the index so ad creation
// sees them.
func (r *Runner) upload(ctx context.Context, sessionID int64, idx *platform.Index, files []source.File, scratch string) ([]uploadedFile, error) {
	pool := NewPool(r.source, r.platform, r.cfg.Upload.Workers, r.metrics, r.logger)

	pending := make([]Task, 0, len(files))
	for _, f := range files {
		dest, err := safety.SafeJoinUnder(scratch, f.Name)
		if err != nil {
			r.logger.Warn("unsafe destination name, skipping", "name", f.Name, "error", err)
			r.recordFile(sessionID, "", f, store.FileStatusError)
			continue
		}
		pending = append(pending, Task{File: f, DestPath: dest})
	}

	var uploaded []uploadedFile
	for round := 1; round <= r.cfg.Upload.MaxRetryRounds && len(pending) > 0; round++ {
		if round > 1 {
			r.logger.Info("retrying rate-limited uploads",
				"round", round, "remaining", len(pending),
				"cooldown", r.cfg.Upload.RateLimitCooldown.Std())
			if err := sleepCtx(ctx, r.cfg.Upload.RateLimitCooldown.Std()); err != nil {
				return uploaded, err
			}
		}

		results := pool.Execute(ctx, pending)
		if err := ctx.Err(); err != nil {
			return uploaded, err
		}

		var retry []Task
		for _, res := range results {
			switch {
			case res.Err == nil:
				idx.AddVideo(res.Video)
				uploaded = append(uploaded, uploadedFile{file: res.Task.File, video: res.Video})
				r.recordFile(sessionID, res.Video.ID, res.Task.File, store.FileStatusUploaded)
			case res.RateLimited:
				retry = append(retry, res.Task)
			default:
				r.recordFile(sessionID, "", res.Task.File, store.FileStatusError)
			}
		}
		pending = retry
	}

	for _, t := range pending {
		r.metrics.FilesFailedTotal.WithLabelValues("retry_exhausted").Inc()
		r.logger.Error("upload abandoned after retry rounds", "name", t.File.Name)
		r.recordFile(sessionID, "", t.File, store.FileStatusFailed)
	}

	return uploaded, nil
}

func (r *Runner) recordFile(sessionID int64, videoID string, f source.File, status string) {
	if err := r.store.RecordFile(sessionID, videoID, f.Name, f.Path, status); err != nil {
		r.logger.Error("failed to record file", "name", f.Name, "error", err)
	}
}

// createAds duplicates each configured template campaign per uploaded file.
// Failures are per-file: one broken duplication never blocks the rest.
func (r *Runner) createAds(ctx context.Context, idx *platform.Index, uploaded []uploadedFile) {
	if len(uploaded) == 0 {
		return
	}

	// Copied objects from earlier sessions may not be in the index yet.
	if err := idx.RefreshAdObjects(ctx, r.platform); err != nil {
		r.logger.Error("failed to refresh ad objects", "error", err)
	}

	wf := workflow.New(r.platform, idx, r.logger)
	for _, templateID := range r.cfg.Platform.TemplateCampaignIDs {
		for _, up := range uploaded {
			req := workflow.Request{
				FileName:           up.file.Name,
				SourcePath:         up.file.Path,
				DerivedName:        pattern.AdSetName(up.file.Name),
				JobNumber:          up.file.JobNumber,
				TemplateCampaignID: templateID,
			}
			if err := wf.Run(ctx, req); err != nil {
				r.metrics.AdCreateFailsTotal.Inc()
				r.logger.Error("ad duplication failed",
					"file", up.file.Name, "template", templateID, "error", err)
				continue
			}
			r.metrics.AdsCreatedTotal.Inc()
		}
	}
}

// poll watches uploaded videos until they finish processing or attempts run
// out, mirroring each observed status into the store. A rate-limited reload
// sleeps the cooldown and repeats the attempt instead of consuming it;
// repeated rate limits are bounded like upload rounds. A video that
// disappears mid-poll is dropped from the index so a later session uploads
// it again.
func (r *Runner) poll(ctx context.Context, idx *platform.Index, uploaded []uploadedFile) {
	pending := make(map[string]uploadedFile, len(uploaded))
	for _, up := range uploaded {
		pending[up.video.ID] = up
	}

	rateLimitRounds := 0
	for attempt := 1; len(pending) > 0 && attempt <= r.cfg.Poll.Attempts; attempt++ {
		rateLimited := false
		for id, up := range pending {
			video, found, err := r.platform.ReloadVideo(ctx, id)
			if platform.IsRateLimit(err) {
				rateLimited = true
				break
			}
			if err != nil {
				r.logger.Warn("failed to reload video", "id", id, "error", err)
				continue
			}
			if !found {
				r.metrics.VideosMissingTotal.Inc()
				r.logger.Warn("video disappeared before becoming ready", "id", id, "name", up.file.Name)
				idx.RemoveVideo(platform.Video{ID: id, Name: up.file.Name})
				if err := r.store.UpdateFileStatus(id, store.FileStatusError); err != nil {
					r.logger.Error("failed to update file status", "video", id, "error", err)
				}
				delete(pending, id)
				continue
			}

			if err := r.store.UpdateFileStatus(id, video.Status); err != nil {
				r.logger.Error("failed to update file status", "video", id, "error", err)
			}
			if video.Ready() {
				r.metrics.VideosReadyTotal.Inc()
				r.logger.Info("video ready", "id", id, "name", up.file.Name)
				delete(pending, id)
			}
		}

		if rateLimited {
			rateLimitRounds++
			if rateLimitRounds >= r.cfg.Upload.MaxRetryRounds {
				r.logger.Error("giving up polling after repeated rate limits", "rounds", rateLimitRounds)
				break
			}
			r.metrics.RateLimitHitsTotal.Inc()
			r.logger.Warn("rate limited while polling, cooling down",
				"cooldown", r.cfg.Upload.RateLimitCooldown.Std())
			if err := sleepCtx(ctx, r.cfg.Upload.RateLimitCooldown.Std()); err != nil {
				return
			}
			attempt--
			continue
		}

		if len(pending) > 0 && attempt < r.cfg.Poll.Attempts {
			if err := sleepCtx(ctx, r.cfg.Poll.Interval.Std()); err != nil {
				return
			}
		}
	}

	for id, up := range pending {
		r.logger.Warn("video still processing after final poll", "id", id, "name", up.file.Name)
	}
}

// sleepCtx waits for d or until ctx is cancelled.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
