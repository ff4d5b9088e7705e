package dto

import "github.com/halilenesdaghan/tiktok-api-integration/domain/model"

// Provider payload shapes for the TikTok open API (open.tiktokapis.com/v2).
// Parsing policy: unknown fields are ignored, required fields are validated
// by the client before a record is accepted.

// TokenResponse is the body returned by the token endpoint for both
// authorization_code and refresh_token grants.
type TokenResponse struct {
	AccessToken      string `json:"access_token"`
	ExpiresIn        int64  `json:"expires_in"`
	OpenID           string `json:"open_id"`
	RefreshToken     string `json:"refresh_token"`
	RefreshExpiresIn int64  `json:"refresh_expires_in"`
	Scope            string `json:"scope"`
	TokenType        string `json:"token_type"`

	// Populated instead of the token fields when the exchange fails.
	Error            string `json:"error,omitempty"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// APIError is the error object embedded in every data endpoint response.
// Code "ok" means success.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	LogID   string `json:"log_id"`
}

// UserInfoFields is encoded with go-querystring into the /user/info/ query.
type UserInfoFields struct {
	Fields string `url:"fields"`
}

// UserInfoResponse wraps GET /v2/user/info/.
type UserInfoResponse struct {
	Data struct {
		User TikTokUserObject `json:"user"`
	} `json:"data"`
	Error APIError `json:"error"`
}

// TikTokUserObject is the provider's user shape.
type TikTokUserObject struct {
	OpenID         string `json:"open_id"`
	UnionID        string `json:"union_id"`
	DisplayName    string `json:"display_name"`
	AvatarURL      string `json:"avatar_url"`
	BioDescription string `json:"bio_description"`
	IsVerified     bool   `json:"is_verified"`
	FollowerCount  int64  `json:"follower_count"`
	FollowingCount int64  `json:"following_count"`
	LikesCount     int64  `json:"likes_count"`
	VideoCount     int64  `json:"video_count"`
}

// VideoListRequest is the POST body for /v2/video/list/.
// Cursor 0 requests the first page; max_count is capped at 20 by the provider.
type VideoListRequest struct {
	Cursor   int64 `json:"cursor,omitempty"`
	MaxCount int   `json:"max_count"`
}

// VideoListResponse wraps POST /v2/video/list/.
type VideoListResponse struct {
	Data struct {
		Videos  []TikTokVideoObject `json:"videos"`
		Cursor  int64               `json:"cursor"`
		HasMore bool                `json:"has_more"`
	} `json:"data"`
	Error APIError `json:"error"`
}

// VideoQueryRequest is the POST body for /v2/video/query/. The provider caps
// the filter at 20 ids per call.
type VideoQueryRequest struct {
	Filters VideoQueryFilters `json:"filters"`
}

// VideoQueryFilters selects the videos to query by id.
type VideoQueryFilters struct {
	VideoIDs []string `json:"video_ids"`
}

// VideoQueryResponse wraps POST /v2/video/query/.
type VideoQueryResponse struct {
	Data struct {
		Videos []TikTokVideoObject `json:"videos"`
	} `json:"data"`
	Error APIError `json:"error"`
}

// TikTokVideoObject is the provider's video shape.
type TikTokVideoObject struct {
	ID            string `json:"id"`
	CreateTime    int64  `json:"create_time"`
	CoverImageURL string `json:"cover_image_url"`
	ShareURL      string `json:"share_url"`
	Description   string `json:"video_description"`
	Duration      int64  `json:"duration"`
	Height        int    `json:"height"`
	Width         int    `json:"width"`
	LikeCount     int64  `json:"like_count"`
	CommentCount  int64  `json:"comment_count"`
	ShareCount    int64  `json:"share_count"`
	ViewCount     int64  `json:"view_count"`
}

// VideoPage is one parsed page of the remote video list.
type VideoPage struct {
	Videos  []model.TikTokVideo `json:"videos"`
	Cursor  int64               `json:"cursor"`
	HasMore bool                `json:"has_more"`
	// Skipped counts provider items dropped by strict parsing (missing id).
	Skipped []SkippedItem `json:"skipped,omitempty"`
}

// SkippedItem describes a provider item rejected during parsing.
type SkippedItem struct {
	Reason string `json:"reason"`
}

// AuthorizationRequest is the response of GET /auth/tiktok.
type AuthorizationRequest struct {
	AuthorizationURL string `json:"authorization_url"`
	State            string `json:"state"`
}

// AccountStats is the profile-level portion of the analytics summary.
type AccountStats struct {
	FollowerCount  int64 `json:"follower_count"`
	FollowingCount int64 `json:"following_count"`
	LikesCount     int64 `json:"likes_count"`
	VideoCount     int64 `json:"video_count"`
}

// EngagementData aggregates stored video metrics.
type EngagementData struct {
	TotalViews          int64   `json:"total_views"`
	TotalLikes          int64   `json:"total_likes"`
	TotalComments       int64   `json:"total_comments"`
	TotalShares         int64   `json:"total_shares"`
	EngagementRate      float64 `json:"engagement_rate"`
	AvgViewsPerVideo    float64 `json:"avg_views_per_video"`
	AvgLikesPerVideo    float64 `json:"avg_likes_per_video"`
	AvgCommentsPerVideo float64 `json:"avg_comments_per_video"`
	AvgSharesPerVideo   float64 `json:"avg_shares_per_video"`
}

// TopVideo is one entry of the top-performing list.
type TopVideo struct {
	VideoID        string  `json:"video_id"`
	Description    string  `json:"description"`
	Views          int64   `json:"views"`
	Likes          int64   `json:"likes"`
	Comments       int64   `json:"comments"`
	Shares         int64   `json:"shares"`
	EngagementRate float64 `json:"engagement_rate"`
}

// AnalyticsSummary is computed purely from already-synced records.
type AnalyticsSummary struct {
	AccountStats   AccountStats   `json:"account_stats"`
	EngagementData EngagementData `json:"engagement_data"`
	TopVideos      []TopVideo     `json:"top_videos"`
	VideoCount     int            `json:"video_count"`
}

// VideoAnalytics is one video record with its computed engagement rate.
type VideoAnalytics struct {
	model.TikTokVideo
	EngagementRate float64 `json:"engagement_rate"`
}

// GrowthTrends compares recent posting weeks against earlier ones. Trend
// values are percentage deltas of the later half over the earlier half.
type GrowthTrends struct {
	WeeklyViewTrend       float64 `json:"weekly_view_trend"`
	WeeklyEngagementTrend float64 `json:"weekly_engagement_trend"`
	PostingFrequency      float64 `json:"posting_frequency"`
	BestPerformingWeek    string  `json:"best_performing_week,omitempty"`
}

// RecentPerformance is the windowed analytics view.
type RecentPerformance struct {
	PeriodDays         int     `json:"period_days"`
	VideoCount         int     `json:"video_count"`
	TotalViews         int64   `json:"total_views"`
	TotalLikes         int64   `json:"total_likes"`
	TotalComments      int64   `json:"total_comments"`
	TotalShares        int64   `json:"total_shares"`
	TotalEngagement    int64   `json:"total_engagement"`
	AvgEngagementRate  float64 `json:"avg_engagement_rate"`
	DailyAvgViews      float64 `json:"daily_avg_views"`
	DailyAvgEngagement float64 `json:"daily_avg_engagement"`
}
