package platform

import (
	"context"
	"io"
	"log/slog"
	"testing"
)

type fakeLister struct {
	videos    []Video
	campaigns []Campaign
	adSets    []AdSet
	ads       []Ad
	err       error

	videoCalls int
}

func (f *fakeLister) ListVideos(ctx context.Context) ([]Video, error) {
	f.videoCalls++
	return f.videos, f.err
}

func (f *fakeLister) ListCampaigns(ctx context.Context) ([]Campaign, error) {
	return f.campaigns, f.err
}

func (f *fakeLister) ListAdSets(ctx context.Context) ([]AdSet, error) {
	return f.adSets, f.err
}

func (f *fakeLister) ListAds(ctx context.Context) ([]Ad, error) {
	return f.ads, f.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestBuildIndexLookups(t *testing.T) {
	l := &fakeLister{
		videos: []Video{
			{ID: "1", Name: "test1"},
			{ID: "2", Name: "test2"},
		},
		campaigns: []Campaign{{ID: "c1", Name: "T606"}},
		adSets:    []AdSet{{ID: "s1", Name: "set", CampaignID: "c1"}},
		ads:       []Ad{{ID: "a1", Name: "ad", AdSetID: "s1"}},
	}

	idx, err := BuildIndex(context.Background(), l, discardLogger())
	if err != nil {
		t.Fatalf("BuildIndex failed: %v", err)
	}

	if idx.ShouldUpload("test1") || idx.ShouldUpload("test2") {
		t.Error("indexed names must not need upload")
	}
	if !idx.ShouldUpload("test5") {
		t.Error("unknown name must need upload")
	}
	if v, ok := idx.VideoByName("test2"); !ok || v.ID != "2" {
		t.Errorf("VideoByName(test2) = %+v, %v", v, ok)
	}
	if c, ok := idx.CampaignByName("T606"); !ok || c.ID != "c1" {
		t.Errorf("CampaignByName(T606) = %+v, %v", c, ok)
	}
	if c, ok := idx.CampaignByID("c1"); !ok || c.Name != "T606" {
		t.Errorf("CampaignByID(c1) = %+v, %v", c, ok)
	}
	if as, ok := idx.AdSetByID("s1"); !ok || as.CampaignID != "c1" {
		t.Errorf("AdSetByID(s1) = %+v, %v", as, ok)
	}
	if ad, ok := idx.AdByName("ad"); !ok || ad.AdSetID != "s1" {
		t.Errorf("AdByName(ad) = %+v, %v", ad, ok)
	}
	if ad, ok := idx.AdByID("a1"); !ok || ad.Name != "ad" {
		t.Errorf("AdByID(a1) = %+v, %v", ad, ok)
	}
	if _, ok := idx.CampaignByID("missing"); ok {
		t.Error("unknown campaign id reported present")
	}
	if _, ok := idx.AdByID("missing"); ok {
		t.Error("unknown ad id reported present")
	}
}

// TestBuildIndexIdempotent: indexing the same list twice yields the same
// answers.
func TestBuildIndexIdempotent(t *testing.T) {
	l := &fakeLister{videos: []Video{{ID: "1", Name: "test1"}}}

	idx, err := BuildIndex(context.Background(), l, discardLogger())
	if err != nil {
		t.Fatal(err)
	}
	idx.AddVideos(l.videos)

	if idx.VideoCount() != 1 {
		t.Errorf("expected 1 video after re-add, got %d", idx.VideoCount())
	}
	if idx.ShouldUpload("test1") {
		t.Error("re-indexed name must not need upload")
	}
}

func TestBuildIndexEmptyAccount(t *testing.T) {
	idx, err := BuildIndex(context.Background(), &fakeLister{}, discardLogger())
	if err != nil {
		t.Fatalf("BuildIndex on empty account failed: %v", err)
	}
	if !idx.ShouldUpload("anything") {
		t.Error("empty index must report upload needed")
	}
}

func TestBuildIndexPropagatesError(t *testing.T) {
	l := &fakeLister{err: &RateLimitError{Op: "list videos", Message: "too many calls"}}

	_, err := BuildIndex(context.Background(), l, discardLogger())
	if !IsRateLimit(err) {
		t.Fatalf("expected rate limit error, got %v", err)
	}
}

func TestRemoveVideo(t *testing.T) {
	idx := NewIndex()
	v := Video{ID: "2", Name: "test2"}
	idx.AddVideo(v)

	idx.RemoveVideo(v)

	if _, ok := idx.VideoByID("2"); ok {
		t.Error("removed video still present by id")
	}
	if _, ok := idx.VideoByName("test2"); ok {
		t.Error("removed video still present by name")
	}
	if !idx.ShouldUpload("test2") {
		t.Error("removed name must need upload again")
	}
}

func TestRefreshAdObjectsReplacesCaches(t *testing.T) {
	l := &fakeLister{campaigns: []Campaign{{ID: "c1", Name: "old"}}}

	idx, err := BuildIndex(context.Background(), l, discardLogger())
	if err != nil {
		t.Fatal(err)
	}

	l.campaigns = []Campaign{{ID: "c2", Name: "new"}}
	if err := idx.RefreshAdObjects(context.Background(), l); err != nil {
		t.Fatal(err)
	}

	if _, ok := idx.CampaignByName("old"); ok {
		t.Error("stale campaign survived refresh")
	}
	if _, ok := idx.CampaignByName("new"); !ok {
		t.Error("refreshed campaign missing")
	}
	if l.videoCalls != 1 {
		t.Errorf("refresh must not re-list videos, calls=%d", l.videoCalls)
	}
}
