package model

import "time"

// TikTokVideo represents one remote video record, keyed by (user_id, video_id).
// Re-sync overwrites metadata and SyncedAt without creating duplicates.
type TikTokVideo struct {
	UserID        string    `json:"user_id"`
	VideoID       string    `json:"video_id"`
	Description   string    `json:"description"`
	Duration      int64     `json:"duration"`
	CreateTime    time.Time `json:"create_time"`
	CoverImageURL string    `json:"cover_image_url"`
	ShareURL      string    `json:"share_url"`
	Height        int       `json:"height"`
	Width         int       `json:"width"`
	ViewCount     int64     `json:"view_count"`
	LikeCount     int64     `json:"like_count"`
	CommentCount  int64     `json:"comment_count"`
	ShareCount    int64     `json:"share_count"`
	SyncedAt      time.Time `json:"synced_at"`
}

// Engagement returns likes + comments + shares.
func (v *TikTokVideo) Engagement() int64 {
	return v.LikeCount + v.CommentCount + v.ShareCount
}

// TikTokProfile is the account-level snapshot stored on each sync.
type TikTokProfile struct {
	UserID         string    `json:"user_id"`
	OpenID         string    `json:"open_id"`
	UnionID        string    `json:"union_id"`
	DisplayName    string    `json:"display_name"`
	AvatarURL      string    `json:"avatar_url"`
	BioDescription string    `json:"bio_description"`
	IsVerified     bool      `json:"is_verified"`
	FollowerCount  int64     `json:"follower_count"`
	FollowingCount int64     `json:"following_count"`
	LikesCount     int64     `json:"likes_count"`
	VideoCount     int64     `json:"video_count"`
	SyncedAt       time.Time `json:"synced_at"`
}
