// Package platform talks to the advertising platform's Graph API: object
// listing, video upload, deep-copy operations, and the in-memory index of
// previously-seen objects. Responses are decoded into typed structs once,
// at this boundary.
package platform

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	fb "github.com/huandu/facebook/v2"

	"github.com/mediaops/adpipe/internal/safety"
)

// DefaultPageSize bounds how many objects are requested per listing page.
const DefaultPageSize = 100

// graphAPI is the raw Graph call surface. It exists so tests can substitute
// the vendor session.
type graphAPI interface {
	Get(ctx context.Context, path string, params fb.Params) (fb.Result, error)
	Post(ctx context.Context, path string, params fb.Params) (fb.Result, error)
	Delete(ctx context.Context, path string, params fb.Params) (fb.Result, error)
}

// sessionAPI adapts a vendor session to graphAPI.
type sessionAPI struct {
	session *fb.Session
}

func (a sessionAPI) Get(ctx context.Context, path string, params fb.Params) (fb.Result, error) {
	return a.session.WithContext(ctx).Get(path, params)
}

func (a sessionAPI) Post(ctx context.Context, path string, params fb.Params) (fb.Result, error) {
	return a.session.WithContext(ctx).Post(path, params)
}

func (a sessionAPI) Delete(ctx context.Context, path string, params fb.Params) (fb.Result, error) {
	return a.session.WithContext(ctx).Delete(path, params)
}

// Client is an explicit handle on one ad account. It is threaded through
// constructors; there is no process-wide session.
type Client struct {
	api       graphAPI
	accountID string
	pageSize  int
	logger    *slog.Logger
}

// ClientOptions configures a Client.
type ClientOptions struct {
	AppID       string
	AppSecret   string
	AccessToken string
	AccountID   string
	APIVersion  string
	PageSize    int
}

// NewClient creates a Client for the configured ad account.
func NewClient(opts ClientOptions, logger *slog.Logger) *Client {
	app := fb.New(opts.AppID, opts.AppSecret)
	session := app.Session(opts.AccessToken)
	if opts.APIVersion != "" {
		session.Version = opts.APIVersion
	}
	// Video uploads are the slowest calls this session makes.
	session.HttpClient = safety.NewHTTPClient(15 * time.Minute)
	return newClient(sessionAPI{session: session}, opts.AccountID, opts.PageSize, logger)
}

func newClient(api graphAPI, accountID string, pageSize int, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if !strings.HasPrefix(accountID, "act_") {
		accountID = "act_" + accountID
	}
	return &Client{api: api, accountID: accountID, pageSize: pageSize, logger: logger}
}

// AccountID returns the normalized account id ("act_" prefixed).
func (c *Client) AccountID() string {
	return c.accountID
}

// decodeInto re-marshals a loosely-typed Graph value into a typed struct.
func decodeInto(v any, dst any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, dst)
}

// listPages walks a paged listing endpoint, calling each per page, until
// the platform reports no further page.
func (c *Client) listPages(ctx context.Context, op, path string, params fb.Params, each func(res fb.Result) error) error {
	if params == nil {
		params = fb.Params{}
	}
	params["limit"] = c.pageSize

	for {
		res, err := c.api.Get(ctx, path, params)
		if err != nil {
			return decodeError(op, err)
		}
		if err := each(res); err != nil {
			return err
		}

		var pg struct {
			Paging struct {
				Cursors struct {
					After string `json:"after"`
				} `json:"cursors"`
				Next string `json:"next"`
			} `json:"paging"`
		}
		if err := decodeInto(res, &pg); err != nil {
			return &PlatformError{Op: op, Message: fmt.Sprintf("decode paging: %v", err)}
		}
		if pg.Paging.Next == "" || pg.Paging.Cursors.After == "" {
			return nil
		}
		params["after"] = pg.Paging.Cursors.After
	}
}

// ListVideos lists all videos on the account across pages.
func (c *Client) ListVideos(ctx context.Context) ([]Video, error) {
	var out []Video
	err := c.listPages(ctx, "list videos", "/"+c.accountID+"/advideos", fb.Params{"fields": "title,status"}, func(res fb.Result) error {
		var page struct {
			Data []videoRow `json:"data"`
		}
		if err := decodeInto(res, &page); err != nil {
			return &PlatformError{Op: "list videos", Message: err.Error()}
		}
		for _, row := range page.Data {
			out = append(out, row.toVideo())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ListCampaigns lists all campaigns on the account across pages.
func (c *Client) ListCampaigns(ctx context.Context) ([]Campaign, error) {
	var out []Campaign
	err := c.listPages(ctx, "list campaigns", "/"+c.accountID+"/campaigns", fb.Params{"fields": "name"}, func(res fb.Result) error {
		var page struct {
			Data []Campaign `json:"data"`
		}
		if err := decodeInto(res, &page); err != nil {
			return &PlatformError{Op: "list campaigns", Message: err.Error()}
		}
		out = append(out, page.Data...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ListAdSets lists all ad-sets on the account across pages.
func (c *Client) ListAdSets(ctx context.Context) ([]AdSet, error) {
	var out []AdSet
	err := c.listPages(ctx, "list ad-sets", "/"+c.accountID+"/adsets", fb.Params{"fields": "name,campaign_id"}, func(res fb.Result) error {
		var page struct {
			Data []AdSet `json:"data"`
		}
		if err := decodeInto(res, &page); err != nil {
			return &PlatformError{Op: "list ad-sets", Message: err.Error()}
		}
		out = append(out, page.Data...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ListAds lists all ads on the account across pages.
func (c *Client) ListAds(ctx context.Context) ([]Ad, error) {
	var out []Ad
	err := c.listPages(ctx, "list ads", "/"+c.accountID+"/ads", fb.Params{"fields": "name,adset_id,creative"}, func(res fb.Result) error {
		var page struct {
			Data []adRow `json:"data"`
		}
		if err := decodeInto(res, &page); err != nil {
			return &PlatformError{Op: "list ads", Message: err.Error()}
		}
		for _, row := range page.Data {
			out = append(out, row.toAd())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// UploadVideo uploads the file at path to the account. name becomes the
// video's display name and is the idempotency key for future runs.
func (c *Client) UploadVideo(ctx context.Context, path, name string) (Video, error) {
	res, err := c.api.Post(ctx, "/"+c.accountID+"/advideos", fb.Params{
		"name":   name,
		"source": fb.File(path),
	})
	if err != nil {
		return Video{}, decodeError("upload video", err)
	}

	var row struct {
		ID string `json:"id"`
	}
	if err := decodeInto(res, &row); err != nil || row.ID == "" {
		return Video{}, &PlatformError{Op: "upload video", Message: "upload did not return a video id"}
	}

	c.logger.Info("video uploaded", "id", row.ID, "name", name)
	return Video{ID: row.ID, Name: name}, nil
}

// ReloadVideo fetches a video's current title and encoding status. The
// second return is false when the platform no longer knows the id.
func (c *Client) ReloadVideo(ctx context.Context, id string) (Video, bool, error) {
	res, err := c.api.Get(ctx, "/"+id, fb.Params{"fields": "status,title"})
	if err != nil {
		if isMissingObject(err) {
			return Video{}, false, nil
		}
		return Video{}, false, decodeError("reload video", err)
	}

	var row videoRow
	if err := decodeInto(res, &row); err != nil {
		return Video{}, false, &PlatformError{Op: "reload video", Message: err.Error()}
	}
	if row.ID == "" {
		row.ID = id
	}
	return row.toVideo(), true, nil
}

// DeleteVideo removes a video from the account.
func (c *Client) DeleteVideo(ctx context.Context, id string) error {
	if _, err := c.api.Delete(ctx, "/"+id, nil); err != nil {
		if isMissingObject(err) {
			return nil
		}
		return decodeError("delete video", err)
	}
	return nil
}

// VideoThumbnail returns the URI of the video's first thumbnail.
func (c *Client) VideoThumbnail(ctx context.Context, id string) (string, error) {
	res, err := c.api.Get(ctx, "/"+id+"/thumbnails", nil)
	if err != nil {
		return "", decodeError("video thumbnails", err)
	}

	var page struct {
		Data []thumbnailRow `json:"data"`
	}
	if err := decodeInto(res, &page); err != nil {
		return "", &PlatformError{Op: "video thumbnails", Message: err.Error()}
	}
	if len(page.Data) == 0 || page.Data[0].URI == "" {
		return "", &PlatformError{Op: "video thumbnails", Message: "video has no thumbnails"}
	}
	return page.Data[0].URI, nil
}

// Campaign reads a campaign's name.
func (c *Client) Campaign(ctx context.Context, id string) (Campaign, error) {
	res, err := c.api.Get(ctx, "/"+id, fb.Params{"fields": "name"})
	if err != nil {
		return Campaign{}, decodeError("read campaign", err)
	}

	var campaign Campaign
	if err := decodeInto(res, &campaign); err != nil {
		return Campaign{}, &PlatformError{Op: "read campaign", Message: err.Error()}
	}
	return campaign, nil
}

// CopyCampaign deep-copies a campaign including its children and returns
// the new campaign id.
func (c *Client) CopyCampaign(ctx context.Context, id string) (string, error) {
	res, err := c.api.Post(ctx, "/"+id+"/copies", fb.Params{"deep_copy": true})
	if err != nil {
		return "", decodeError("copy campaign", err)
	}

	var row struct {
		CopiedCampaignID string `json:"copied_campaign_id"`
	}
	if err := decodeInto(res, &row); err != nil {
		return "", &PlatformError{Op: "copy campaign", Message: err.Error()}
	}
	return row.CopiedCampaignID, nil
}

// CampaignAdSets lists the ad-sets under a campaign.
func (c *Client) CampaignAdSets(ctx context.Context, campaignID string) ([]AdSet, error) {
	var out []AdSet
	err := c.listPages(ctx, "list campaign ad-sets", "/"+campaignID+"/adsets", fb.Params{"fields": "name,campaign_id"}, func(res fb.Result) error {
		var page struct {
			Data []AdSet `json:"data"`
		}
		if err := decodeInto(res, &page); err != nil {
			return &PlatformError{Op: "list campaign ad-sets", Message: err.Error()}
		}
		out = append(out, page.Data...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// CopyAdSet deep-copies an ad-set including its ads and returns the new
// ad-set id.
func (c *Client) CopyAdSet(ctx context.Context, id string) (string, error) {
	res, err := c.api.Post(ctx, "/"+id+"/copies", fb.Params{"deep_copy": true})
	if err != nil {
		return "", decodeError("copy ad-set", err)
	}

	var row struct {
		CopiedAdSetID string `json:"copied_adset_id"`
	}
	if err := decodeInto(res, &row); err != nil {
		return "", &PlatformError{Op: "copy ad-set", Message: err.Error()}
	}
	return row.CopiedAdSetID, nil
}

// AdSetAds lists the ads under an ad-set.
func (c *Client) AdSetAds(ctx context.Context, adSetID string) ([]Ad, error) {
	var out []Ad
	err := c.listPages(ctx, "list ad-set ads", "/"+adSetID+"/ads", fb.Params{"fields": "name,adset_id,creative"}, func(res fb.Result) error {
		var page struct {
			Data []adRow `json:"data"`
		}
		if err := decodeInto(res, &page); err != nil {
			return &PlatformError{Op: "list ad-set ads", Message: err.Error()}
		}
		for _, row := range page.Data {
			out = append(out, row.toAd())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Rename updates an object's display name. Works for campaigns, ad-sets,
// and ads alike.
func (c *Client) Rename(ctx context.Context, objectID, name string) error {
	if _, err := c.api.Post(ctx, "/"+objectID, fb.Params{"name": name}); err != nil {
		return decodeError("rename", err)
	}
	return nil
}

// DeleteAdSet removes an ad-set.
func (c *Client) DeleteAdSet(ctx context.Context, id string) error {
	if _, err := c.api.Delete(ctx, "/"+id, nil); err != nil {
		return decodeError("delete ad-set", err)
	}
	return nil
}

// Creative reads a creative's story spec.
func (c *Client) Creative(ctx context.Context, id string) (Creative, error) {
	res, err := c.api.Get(ctx, "/"+id, fb.Params{"fields": "name,object_story_spec"})
	if err != nil {
		return Creative{}, decodeError("read creative", err)
	}

	var creative Creative
	if err := decodeInto(res, &creative); err != nil {
		return Creative{}, &PlatformError{Op: "read creative", Message: err.Error()}
	}
	return creative, nil
}

// CreateCreative creates a new creative from the given story spec and
// returns its id.
func (c *Client) CreateCreative(ctx context.Context, name string, spec StorySpec) (string, error) {
	specJSON, err := json.Marshal(spec)
	if err != nil {
		return "", &PlatformError{Op: "create creative", Message: fmt.Sprintf("encode story spec: %v", err)}
	}

	res, err := c.api.Post(ctx, "/"+c.accountID+"/adcreatives", fb.Params{
		"name":              name,
		"object_story_spec": string(specJSON),
	})
	if err != nil {
		return "", decodeError("create creative", err)
	}

	var row struct {
		ID string `json:"id"`
	}
	if err := decodeInto(res, &row); err != nil || row.ID == "" {
		return "", &PlatformError{Op: "create creative", Message: "create did not return a creative id"}
	}
	return row.ID, nil
}

// SetAdCreative repoints an ad to a different creative.
func (c *Client) SetAdCreative(ctx context.Context, adID, creativeID string) error {
	payload, _ := json.Marshal(map[string]string{"creative_id": creativeID})
	if _, err := c.api.Post(ctx, "/"+adID, fb.Params{"creative": string(payload)}); err != nil {
		return decodeError("set ad creative", err)
	}
	return nil
}

// isMissingObject reports whether the Graph error means the object no
// longer exists (deleted or never created).
func isMissingObject(err error) bool {
	var fbErr *fb.Error
	if !errors.As(err, &fbErr) {
		return false
	}
	return fbErr.Code == 100 || fbErr.Code == 803
}
