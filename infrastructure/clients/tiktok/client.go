package tiktok

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"time"

	"github.com/google/go-querystring/query"

	"github.com/halilenesdaghan/tiktok-api-integration/domain/apperrors"
	"github.com/halilenesdaghan/tiktok-api-integration/domain/dto"
	"github.com/halilenesdaghan/tiktok-api-integration/domain/model"
	"github.com/halilenesdaghan/tiktok-api-integration/domain/repository"
	"github.com/halilenesdaghan/tiktok-api-integration/infrastructure/logger"
)

const (
	// APIBaseURL is the TikTok open API host.
	APIBaseURL = "https://open.tiktokapis.com"

	// MaxPageSize is the provider's hard cap on video list pages.
	MaxPageSize = 20

	// MaxQueryIDs is the provider's cap on ids per video query call.
	MaxQueryIDs = 20

	userInfoFields  = "open_id,union_id,avatar_url,display_name,bio_description,is_verified,follower_count,following_count,likes_count,video_count"
	videoListFields = "id,create_time,cover_image_url,share_url,video_description,duration,height,width,like_count,comment_count,share_count,view_count"

	defaultMaxAttempts = 4
	backoffBase        = 500 * time.Millisecond
	backoffCap         = 8 * time.Second
)

// Client is the rate-limited data client for the TikTok open API. Every call
// fetches a fresh access token from the coordinator immediately before the
// request and never caches it beyond that request.
type Client struct {
	tokens      repository.ITokenSource
	limiter     *RateLimiter
	httpClient  *http.Client
	baseURL     string
	maxAttempts int
}

func NewClient(tokens repository.ITokenSource, limiter *RateLimiter) *Client {
	if limiter == nil {
		limiter = NewRateLimiter(DefaultRatePerSecond, DefaultBurst)
	}
	return &Client{
		tokens:      tokens,
		limiter:     limiter,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		baseURL:     APIBaseURL,
		maxAttempts: defaultMaxAttempts,
	}
}

// GetUserInfo fetches the live account profile for the user.
func (c *Client) GetUserInfo(ctx context.Context, userID string) (*model.TikTokProfile, error) {
	q, err := query.Values(dto.UserInfoFields{Fields: userInfoFields})
	if err != nil {
		return nil, fmt.Errorf("encode user info query: %w", err)
	}
	var out dto.UserInfoResponse
	if err := c.doJSON(ctx, userID, http.MethodGet, "/v2/user/info/?"+q.Encode(), nil, &out); err != nil {
		return nil, err
	}
	if out.Error.Code != "" && out.Error.Code != "ok" {
		return nil, fmt.Errorf("user info rejected: %s (%s)", out.Error.Code, out.Error.Message)
	}
	u := out.Data.User
	if u.OpenID == "" {
		return nil, fmt.Errorf("user info response missing open_id")
	}
	return &model.TikTokProfile{
		UserID:         userID,
		OpenID:         u.OpenID,
		UnionID:        u.UnionID,
		DisplayName:    u.DisplayName,
		AvatarURL:      u.AvatarURL,
		BioDescription: u.BioDescription,
		IsVerified:     u.IsVerified,
		FollowerCount:  u.FollowerCount,
		FollowingCount: u.FollowingCount,
		LikesCount:     u.LikesCount,
		VideoCount:     u.VideoCount,
		SyncedAt:       time.Now().UTC(),
	}, nil
}

// ListVideos fetches one page of the user's video list. Cursor 0 requests the
// first page. Items without an id are skipped, not fatal.
func (c *Client) ListVideos(ctx context.Context, userID string, cursor int64, maxCount int) (*dto.VideoPage, error) {
	if maxCount <= 0 || maxCount > MaxPageSize {
		maxCount = MaxPageSize
	}
	body, err := json.Marshal(dto.VideoListRequest{Cursor: cursor, MaxCount: maxCount})
	if err != nil {
		return nil, fmt.Errorf("encode video list request: %w", err)
	}
	var out dto.VideoListResponse
	if err := c.doJSON(ctx, userID, http.MethodPost, "/v2/video/list/?fields="+videoListFields, body, &out); err != nil {
		return nil, err
	}
	if out.Error.Code != "" && out.Error.Code != "ok" {
		return nil, fmt.Errorf("video list rejected: %s (%s)", out.Error.Code, out.Error.Message)
	}

	page := &dto.VideoPage{Cursor: out.Data.Cursor, HasMore: out.Data.HasMore}
	now := time.Now().UTC()
	for _, item := range out.Data.Videos {
		if item.ID == "" {
			page.Skipped = append(page.Skipped, dto.SkippedItem{Reason: "missing id"})
			continue
		}
		page.Videos = append(page.Videos, videoFromObject(userID, item, now))
	}
	return page, nil
}

// QueryVideos fetches specific videos by id. Unknown ids are absent from the
// result rather than an error.
func (c *Client) QueryVideos(ctx context.Context, userID string, videoIDs []string) ([]model.TikTokVideo, error) {
	if len(videoIDs) == 0 {
		return nil, nil
	}
	if len(videoIDs) > MaxQueryIDs {
		videoIDs = videoIDs[:MaxQueryIDs]
	}
	body, err := json.Marshal(dto.VideoQueryRequest{Filters: dto.VideoQueryFilters{VideoIDs: videoIDs}})
	if err != nil {
		return nil, fmt.Errorf("encode video query request: %w", err)
	}
	var out dto.VideoQueryResponse
	if err := c.doJSON(ctx, userID, http.MethodPost, "/v2/video/query/?fields="+videoListFields, body, &out); err != nil {
		return nil, err
	}
	if out.Error.Code != "" && out.Error.Code != "ok" {
		return nil, fmt.Errorf("video query rejected: %s (%s)", out.Error.Code, out.Error.Message)
	}

	now := time.Now().UTC()
	var videos []model.TikTokVideo
	for _, item := range out.Data.Videos {
		if item.ID == "" {
			continue
		}
		videos = append(videos, videoFromObject(userID, item, now))
	}
	return videos, nil
}

func videoFromObject(userID string, item dto.TikTokVideoObject, now time.Time) model.TikTokVideo {
	return model.TikTokVideo{
		UserID:        userID,
		VideoID:       item.ID,
		Description:   item.Description,
		Duration:      item.Duration,
		CreateTime:    time.Unix(item.CreateTime, 0).UTC(),
		CoverImageURL: item.CoverImageURL,
		ShareURL:      item.ShareURL,
		Height:        item.Height,
		Width:         item.Width,
		ViewCount:     item.ViewCount,
		LikeCount:     item.LikeCount,
		CommentCount:  item.CommentCount,
		ShareCount:    item.ShareCount,
		SyncedAt:      now,
	}
}

// doJSON runs one logical API call through the retry loop: proactive pacing,
// fresh token per attempt, 429 cooldowns, one forced refresh on 401/403, and
// exponential backoff with jitter on transient failures.
func (c *Client) doJSON(ctx context.Context, userID, method, path string, body []byte, out interface{}) error {
	var (
		forcedRefresh bool
		lastErr       error
	)
	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		if attempt > 0 {
			if err := sleepCtx(ctx, backoffDelay(attempt)); err != nil {
				return err
			}
		}
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		token, err := c.tokens.AccessToken(ctx, userID)
		if err != nil {
			// credential problems are not retryable here
			return err
		}

		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
		if err != nil {
			return fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("call %s: %w", path, err)
			continue
		}

		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			wait := c.limiter.ObserveResponse(resp)
			drain(resp)
			logger.GetLogger().WithFields(map[string]interface{}{
				"path": path,
				"wait": wait.String(),
			}).Warn("provider rate limit hit")
			lastErr = apperrors.ErrRateLimited
			continue

		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			drain(resp)
			if forcedRefresh {
				return fmt.Errorf("%w: %s answered %d after forced refresh", apperrors.ErrUnauthorized, path, resp.StatusCode)
			}
			forcedRefresh = true
			if _, err := c.tokens.ForceRefresh(ctx, userID); err != nil {
				return err
			}
			// immediate retry with the fresh token, no backoff
			attempt--
			continue

		case resp.StatusCode >= http.StatusInternalServerError:
			drain(resp)
			lastErr = fmt.Errorf("call %s: provider returned %d", path, resp.StatusCode)
			continue

		case resp.StatusCode != http.StatusOK:
			payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
			resp.Body.Close()
			return fmt.Errorf("call %s: unexpected status %d: %s", path, resp.StatusCode, payload)
		}

		payload, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("read response: %w", err)
			continue
		}
		if err := json.Unmarshal(payload, out); err != nil {
			return fmt.Errorf("decode %s response: %w", path, err)
		}
		return nil
	}
	return fmt.Errorf("call %s: retry budget exhausted: %w", path, lastErr)
}

func backoffDelay(attempt int) time.Duration {
	d := backoffBase << uint(attempt-1)
	if d > backoffCap {
		d = backoffCap
	}
	// jitter up to half the delay
	return d + time.Duration(rand.Int63n(int64(d/2)+1))
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
	resp.Body.Close()
}
