package platform

import (
	"context"
	"log/slog"
)

// Lister is the listing surface the index is built from. *Client satisfies
// it.
type Lister interface {
	ListVideos(ctx context.Context) ([]Video, error)
	ListCampaigns(ctx context.Context) ([]Campaign, error)
	ListAdSets(ctx context.Context) ([]AdSet, error)
	ListAds(ctx context.Context) ([]Ad, error)
}

// Index caches the platform objects seen at run start, keyed by id and by
// name. Name lookups are the pipeline's sole idempotency mechanism: an
// object that exists by name is reused, never recreated. The index is
// mutated only from the controlling goroutine.
type Index struct {
	videosByID      map[string]Video
	videosByName    map[string]Video
	campaignsByID   map[string]Campaign
	campaignsByName map[string]Campaign
	adSetsByID      map[string]AdSet
	adSetsByName    map[string]AdSet
	adsByID         map[string]Ad
	adsByName       map[string]Ad
}

// NewIndex returns an empty index.
func NewIndex() *Index {
	return &Index{
		videosByID:      make(map[string]Video),
		videosByName:    make(map[string]Video),
		campaignsByID:   make(map[string]Campaign),
		campaignsByName: make(map[string]Campaign),
		adSetsByID:      make(map[string]AdSet),
		adSetsByName:    make(map[string]AdSet),
		adsByID:         make(map[string]Ad),
		adsByName:       make(map[string]Ad),
	}
}

// BuildIndex fetches every category from the platform and populates a fresh
// index. Empty accounts produce an empty, usable index.
func BuildIndex(ctx context.Context, l Lister, logger *slog.Logger) (*Index, error) {
	if logger == nil {
		logger = slog.Default()
	}

	idx := NewIndex()

	videos, err := l.ListVideos(ctx)
	if err != nil {
		return nil, err
	}
	idx.AddVideos(videos)

	if err := idx.RefreshAdObjects(ctx, l); err != nil {
		return nil, err
	}

	logger.Info("platform index built",
		"videos", len(idx.videosByID),
		"campaigns", len(idx.campaignsByID),
		"ad_sets", len(idx.adSetsByID),
		"ads", len(idx.adsByID))
	return idx, nil
}

// RefreshAdObjects re-fetches campaigns, ad-sets, and ads, replacing the
// cached copies. Videos are left untouched.
func (idx *Index) RefreshAdObjects(ctx context.Context, l Lister) error {
	campaigns, err := l.ListCampaigns(ctx)
	if err != nil {
		return err
	}
	adSets, err := l.ListAdSets(ctx)
	if err != nil {
		return err
	}
	ads, err := l.ListAds(ctx)
	if err != nil {
		return err
	}

	idx.campaignsByID = make(map[string]Campaign, len(campaigns))
	idx.campaignsByName = make(map[string]Campaign, len(campaigns))
	for _, c := range campaigns {
		idx.AddCampaign(c)
	}
	idx.adSetsByID = make(map[string]AdSet, len(adSets))
	idx.adSetsByName = make(map[string]AdSet, len(adSets))
	for _, as := range adSets {
		idx.AddAdSet(as)
	}
	idx.adsByID = make(map[string]Ad, len(ads))
	idx.adsByName = make(map[string]Ad, len(ads))
	for _, ad := range ads {
		idx.AddAd(ad)
	}
	return nil
}

// AddVideos indexes a batch of videos by id and name.
func (idx *Index) AddVideos(videos []Video) {
	for _, v := range videos {
		idx.AddVideo(v)
	}
}

func (idx *Index) AddVideo(v Video) {
	idx.videosByID[v.ID] = v
	if v.Name != "" {
		idx.videosByName[v.Name] = v
	}
}

func (idx *Index) AddCampaign(c Campaign) {
	idx.campaignsByID[c.ID] = c
	if c.Name != "" {
		idx.campaignsByName[c.Name] = c
	}
}

func (idx *Index) AddAdSet(as AdSet) {
	idx.adSetsByID[as.ID] = as
	if as.Name != "" {
		idx.adSetsByName[as.Name] = as
	}
}

func (idx *Index) AddAd(ad Ad) {
	idx.adsByID[ad.ID] = ad
	if ad.Name != "" {
		idx.adsByName[ad.Name] = ad
	}
}

// RemoveVideo evicts a video from both maps.
func (idx *Index) RemoveVideo(v Video) {
	delete(idx.videosByID, v.ID)
	delete(idx.videosByName, v.Name)
}

func (idx *Index) VideoByID(id string) (Video, bool) {
	v, ok := idx.videosByID[id]
	return v, ok
}

func (idx *Index) VideoByName(name string) (Video, bool) {
	v, ok := idx.videosByName[name]
	return v, ok
}

func (idx *Index) CampaignByID(id string) (Campaign, bool) {
	c, ok := idx.campaignsByID[id]
	return c, ok
}

func (idx *Index) CampaignByName(name string) (Campaign, bool) {
	c, ok := idx.campaignsByName[name]
	return c, ok
}

func (idx *Index) AdSetByID(id string) (AdSet, bool) {
	as, ok := idx.adSetsByID[id]
	return as, ok
}

func (idx *Index) AdSetByName(name string) (AdSet, bool) {
	as, ok := idx.adSetsByName[name]
	return as, ok
}

func (idx *Index) AdByID(id string) (Ad, bool) {
	ad, ok := idx.adsByID[id]
	return ad, ok
}

func (idx *Index) AdByName(name string) (Ad, bool) {
	ad, ok := idx.adsByName[name]
	return ad, ok
}

// ShouldUpload reports whether no video with this name has been indexed
// yet. Name is the idempotency key for "already uploaded".
func (idx *Index) ShouldUpload(name string) bool {
	_, ok := idx.videosByName[name]
	return !ok
}

// VideoCount returns how many videos are indexed.
func (idx *Index) VideoCount() int {
	return len(idx.videosByID)
}
