package platform

import "encoding/json"

// VideoStatusReady is the terminal encoding status for an uploaded video.
const VideoStatusReady = "ready"

// Video is an uploaded video object on the ad platform.
type Video struct {
	ID     string
	Name   string
	Status string
}

// Ready reports whether the video reached its terminal encoding status.
func (v Video) Ready() bool {
	return v.Status == VideoStatusReady
}

// Campaign is a campaign object, cached by id and name.
type Campaign struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// AdSet is an ad-set object. CampaignID is the parent campaign.
type AdSet struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	CampaignID string `json:"campaign_id"`
}

// Ad is an ad object. AdSetID is the parent ad-set; CreativeID references
// the ad's current creative.
type Ad struct {
	ID         string
	Name       string
	AdSetID    string
	CreativeID string
}

// Creative is an ad creative with its structured story spec.
type Creative struct {
	ID   string    `json:"id"`
	Name string    `json:"name"`
	Spec StorySpec `json:"object_story_spec"`
}

// StorySpec is the platform's description of an ad's rendered content.
// Fields the workflow does not touch are carried through as raw JSON so a
// rebuilt creative keeps them intact.
type StorySpec struct {
	PageID           string          `json:"page_id,omitempty"`
	InstagramActorID string          `json:"instagram_actor_id,omitempty"`
	VideoData        *VideoData      `json:"video_data,omitempty"`
	LinkData         json.RawMessage `json:"link_data,omitempty"`
	PhotoData        json.RawMessage `json:"photo_data,omitempty"`
}

// VideoData is the video portion of a story spec. ImageHash is dropped
// (left empty) when the story spec is rebuilt for a new video; the new
// video gets a fresh thumbnail URL instead.
type VideoData struct {
	VideoID      string          `json:"video_id,omitempty"`
	ImageURL     string          `json:"image_url,omitempty"`
	ImageHash    string          `json:"image_hash,omitempty"`
	Title        string          `json:"title,omitempty"`
	Message      string          `json:"message,omitempty"`
	CallToAction json.RawMessage `json:"call_to_action,omitempty"`
}

// wire row shapes, decoded once at the adapter boundary.

type videoRow struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Status struct {
		VideoStatus string `json:"video_status"`
	} `json:"status"`
}

func (r videoRow) toVideo() Video {
	return Video{ID: r.ID, Name: r.Title, Status: r.Status.VideoStatus}
}

type adRow struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	AdSetID  string `json:"adset_id"`
	Creative struct {
		ID string `json:"id"`
	} `json:"creative"`
}

func (r adRow) toAd() Ad {
	return Ad{ID: r.ID, Name: r.Name, AdSetID: r.AdSetID, CreativeID: r.Creative.ID}
}

type thumbnailRow struct {
	URI string `json:"uri"`
}
