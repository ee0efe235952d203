// Package workflow duplicates a template campaign hierarchy per job so a
// new ad references an uploaded video. Every step is idempotent by name:
// an object that already exists with the target name is reused, never
// recreated, which makes the workflow re-entrant across retried runs.
package workflow

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mediaops/adpipe/internal/pattern"
	"github.com/mediaops/adpipe/internal/platform"
)

// DuplicationError means a workflow step produced an invalid or ambiguous
// result, such as zero or multiple ads where exactly one is required.
type DuplicationError struct {
	Step    string
	Message string
}

func (e *DuplicationError) Error() string {
	return fmt.Sprintf("duplication %s: %s", e.Step, e.Message)
}

// Platform is the slice of the ads client the workflow needs.
type Platform interface {
	Campaign(ctx context.Context, id string) (platform.Campaign, error)
	CopyCampaign(ctx context.Context, id string) (string, error)
	CampaignAdSets(ctx context.Context, campaignID string) ([]platform.AdSet, error)
	CopyAdSet(ctx context.Context, id string) (string, error)
	AdSetAds(ctx context.Context, adSetID string) ([]platform.Ad, error)
	Rename(ctx context.Context, objectID, name string) error
	DeleteAdSet(ctx context.Context, id string) error
	Creative(ctx context.Context, id string) (platform.Creative, error)
	CreateCreative(ctx context.Context, name string, spec platform.StorySpec) (string, error)
	SetAdCreative(ctx context.Context, adID, creativeID string) error
	VideoThumbnail(ctx context.Context, videoID string) (string, error)
}

// Request identifies one duplication job.
type Request struct {
	// FileName is the uploaded video's display name, the upload
	// idempotency key.
	FileName string
	// SourcePath is the file's remote path, used to derive the campaign
	// name suffix.
	SourcePath string
	// DerivedName is the ad-set/ad name: the video file name without its
	// extension.
	DerivedName string
	JobNumber   int
	// TemplateCampaignID is the campaign whose hierarchy is deep-copied.
	TemplateCampaignID string
}

// Workflow drives campaign duplication against one platform index.
type Workflow struct {
	platform Platform
	index    *platform.Index
	logger   *slog.Logger
}

// New creates a Workflow. The index must already be built; created objects
// are added to it so later requests within the run see them.
func New(p Platform, index *platform.Index, logger *slog.Logger) *Workflow {
	if logger == nil {
		logger = slog.Default()
	}
	return &Workflow{platform: p, index: index, logger: logger}
}

// Run ensures the campaign, ad-set, and ad for this job exist and that
// the ad's creative references the uploaded video. Any hard failure aborts
// the job with no rollback; objects created by a failed attempt are found
// by name and reused on the next run.
func (w *Workflow) Run(ctx context.Context, req Request) error {
	video, ok := w.index.VideoByName(req.FileName)
	if !ok {
		return &DuplicationError{Step: "precondition", Message: fmt.Sprintf("video %q is not uploaded yet", req.FileName)}
	}

	campaign, err := w.ensureCampaign(ctx, req)
	if err != nil {
		return err
	}

	adSet, err := w.ensureAdSet(ctx, req, campaign)
	if err != nil {
		return err
	}

	return w.ensureAd(ctx, req, adSet, video)
}

// ensureCampaign returns the job-scoped campaign, deep-copying the
// template when none exists yet.
func (w *Workflow) ensureCampaign(ctx context.Context, req Request) (platform.Campaign, error) {
	template, ok := w.index.CampaignByID(req.TemplateCampaignID)
	if !ok {
		var err error
		template, err = w.platform.Campaign(ctx, req.TemplateCampaignID)
		if err != nil {
			return platform.Campaign{}, err
		}
		w.index.AddCampaign(template)
	}

	suffix := pattern.CampaignSuffix(req.SourcePath)
	targetName := pattern.TargetCampaignName(template.Name, req.JobNumber, suffix)

	if existing, ok := w.index.CampaignByName(targetName); ok {
		w.logger.Info("campaign already exists", "name", targetName, "id", existing.ID)
		return existing, nil
	}

	w.logger.Info("copying template campaign", "template", req.TemplateCampaignID, "name", targetName)
	copiedID, err := w.platform.CopyCampaign(ctx, req.TemplateCampaignID)
	if err != nil {
		return platform.Campaign{}, err
	}
	if copiedID == "" {
		return platform.Campaign{}, &DuplicationError{Step: "campaign", Message: "copy did not produce a campaign id"}
	}
	if err := w.platform.Rename(ctx, copiedID, targetName); err != nil {
		return platform.Campaign{}, err
	}

	campaign := platform.Campaign{ID: copiedID, Name: targetName}
	w.index.AddCampaign(campaign)
	return campaign, nil
}

// ensureAdSet returns the ad-set named after the video under campaign,
// copying the campaign's first ad-set when none exists. The original
// ad-set is deleted only when the campaign is the template itself and the
// copy fully succeeded, so the template does not accumulate stray ad-sets.
func (w *Workflow) ensureAdSet(ctx context.Context, req Request, campaign platform.Campaign) (platform.AdSet, error) {
	if existing, ok := w.index.AdSetByName(req.DerivedName); ok && existing.CampaignID == campaign.ID {
		w.logger.Info("ad-set already exists", "name", req.DerivedName, "id", existing.ID)
		return existing, nil
	}

	adSets, err := w.platform.CampaignAdSets(ctx, campaign.ID)
	if err != nil {
		return platform.AdSet{}, err
	}
	if len(adSets) == 0 {
		return platform.AdSet{}, &DuplicationError{Step: "ad-set", Message: fmt.Sprintf("campaign %s has no ad-sets to copy", campaign.ID)}
	}

	for _, as := range adSets {
		if as.Name == req.DerivedName {
			w.index.AddAdSet(as)
			return as, nil
		}
	}

	source := adSets[0]
	w.logger.Info("copying ad-set", "source", source.ID, "name", req.DerivedName)
	copiedID, err := w.platform.CopyAdSet(ctx, source.ID)
	if err != nil {
		return platform.AdSet{}, err
	}
	if copiedID == "" {
		return platform.AdSet{}, &DuplicationError{Step: "ad-set", Message: "copy did not produce an ad-set id"}
	}
	if err := w.platform.Rename(ctx, copiedID, req.DerivedName); err != nil {
		return platform.AdSet{}, err
	}

	if campaign.ID == req.TemplateCampaignID {
		if err := w.platform.DeleteAdSet(ctx, source.ID); err != nil {
			w.logger.Warn("failed to delete template ad-set", "id", source.ID, "error", err)
		}
	}

	adSet := platform.AdSet{ID: copiedID, Name: req.DerivedName, CampaignID: campaign.ID}
	w.index.AddAdSet(adSet)
	return adSet, nil
}

// ensureAd renames the ad-set's single ad and rebuilds its creative around
// the uploaded video. An ad-set with zero or multiple ads is an ambiguous
// target and fails without mutating anything.
func (w *Workflow) ensureAd(ctx context.Context, req Request, adSet platform.AdSet, video platform.Video) error {
	if existing, ok := w.index.AdByName(req.DerivedName); ok && existing.AdSetID == adSet.ID {
		w.logger.Info("ad already exists", "name", req.DerivedName, "id", existing.ID)
		return nil
	}

	ads, err := w.platform.AdSetAds(ctx, adSet.ID)
	if err != nil {
		return err
	}
	if len(ads) != 1 {
		return &DuplicationError{Step: "ad", Message: fmt.Sprintf("ad-set %s has %d ads, exactly one required", adSet.ID, len(ads))}
	}
	ad := ads[0]

	if err := w.platform.Rename(ctx, ad.ID, req.DerivedName); err != nil {
		return err
	}

	creative, err := w.platform.Creative(ctx, ad.CreativeID)
	if err != nil {
		return err
	}
	if creative.Spec.VideoData == nil {
		return &DuplicationError{Step: "creative", Message: fmt.Sprintf("creative %s has no video data", ad.CreativeID)}
	}

	thumbnail, err := w.platform.VideoThumbnail(ctx, video.ID)
	if err != nil {
		return err
	}

	spec := creative.Spec
	videoData := *spec.VideoData
	videoData.VideoID = video.ID
	videoData.ImageURL = thumbnail
	videoData.ImageHash = ""
	spec.VideoData = &videoData

	creativeID, err := w.platform.CreateCreative(ctx, req.DerivedName, spec)
	if err != nil {
		return err
	}
	if err := w.platform.SetAdCreative(ctx, ad.ID, creativeID); err != nil {
		return err
	}

	w.index.AddAd(platform.Ad{ID: ad.ID, Name: req.DerivedName, AdSetID: adSet.ID, CreativeID: creativeID})
	w.logger.Info("ad rewired to new creative", "ad", ad.ID, "creative", creativeID, "video", video.ID)
	return nil
}
