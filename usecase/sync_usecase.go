package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/halilenesdaghan/tiktok-api-integration/domain/apperrors"
	"github.com/halilenesdaghan/tiktok-api-integration/domain/dto"
	"github.com/halilenesdaghan/tiktok-api-integration/domain/model"
	"github.com/halilenesdaghan/tiktok-api-integration/domain/repository"
	"github.com/halilenesdaghan/tiktok-api-integration/infrastructure/logger"
)

const (
	// DefaultMaxItems bounds one sync run when the caller does not.
	DefaultMaxItems = 200

	// DefaultTopVideos is the length of the top-performing list in summaries.
	DefaultTopVideos = 5
)

type ISyncUsecase interface {
	// RunSync fetches the profile and paginates the video list, persisting
	// each page before requesting the next. Per-item failures are recorded
	// in the run; credential-fatal errors abort it. A cancelled context
	// stops pagination and returns the partial run with Cancelled set.
	RunSync(ctx context.Context, userID string, maxItems int) (*model.SyncRun, error)
	// Summarize computes aggregate analytics purely from stored records.
	Summarize(ctx context.Context, userID string) (*dto.AnalyticsSummary, error)
	// RecentPerformance aggregates stored videos created in the last days.
	RecentPerformance(ctx context.Context, userID string, days int) (*dto.RecentPerformance, error)
	// GrowthTrends compares posting weeks over the stored history.
	GrowthTrends(ctx context.Context, userID string) (*dto.GrowthTrends, error)
	// VideoAnalytics returns one video's metrics, preferring the stored
	// record and querying the provider when it was never synced. A nil
	// result means neither side knows the video.
	VideoAnalytics(ctx context.Context, userID, videoID string) (*dto.VideoAnalytics, error)
}

type syncUsecase struct {
	client   repository.ITikTok
	videos   repository.IVideo
	profiles repository.IProfile
	pageSize int

	// optional collaborators, nil-safe
	audit     repository.ISyncAudit
	notifiers []repository.ISyncNotifier
}

func NewSyncUsecase(client repository.ITikTok, videos repository.IVideo, profiles repository.IProfile, pageSize int, audit repository.ISyncAudit, notifiers ...repository.ISyncNotifier) ISyncUsecase {
	if pageSize <= 0 || pageSize > 20 {
		pageSize = 20
	}
	return &syncUsecase{
		client:    client,
		videos:    videos,
		profiles:  profiles,
		pageSize:  pageSize,
		audit:     audit,
		notifiers: notifiers,
	}
}

func (u *syncUsecase) RunSync(ctx context.Context, userID string, maxItems int) (*model.SyncRun, error) {
	if maxItems <= 0 {
		maxItems = DefaultMaxItems
	}
	run := &model.SyncRun{
		ID:        uuid.NewString(),
		UserID:    userID,
		StartedAt: time.Now().UTC(),
	}

	profile, err := u.client.GetUserInfo(ctx, userID)
	if err != nil {
		if isCredentialFatal(err) {
			return nil, err
		}
		run.AddError("", "profile", err.Error())
	} else if err := u.profiles.Upsert(ctx, profile); err != nil {
		run.AddError("", "profile", err.Error())
	} else {
		run.ProfileSynced = true
	}

	var cursor int64
	for run.ItemsRequested < maxItems {
		if err := ctx.Err(); err != nil {
			run.Cancelled = true
			break
		}

		remaining := maxItems - run.ItemsRequested
		pageSize := u.pageSize
		if remaining < pageSize {
			pageSize = remaining
		}

		page, err := u.client.ListVideos(ctx, userID, cursor, pageSize)
		if err != nil {
			if isCredentialFatal(err) {
				return nil, err
			}
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				run.Cancelled = true
				break
			}
			// the page never arrived; record and stop, the next run resumes
			run.AddError("", "page_fetch", err.Error())
			break
		}
		run.PagesFetched++
		run.ItemsRequested += len(page.Videos) + len(page.Skipped)
		if len(page.Videos)+len(page.Skipped) == 0 {
			// a page that contributes nothing makes no progress; trusting
			// its has_more would paginate forever
			if page.HasMore {
				run.AddError("", "page_fetch", "provider returned an empty page claiming more results")
			}
			break
		}
		for range page.Skipped {
			run.AddError("", "parse", "provider item missing id")
		}

		// persist this page before fetching the next
		if err := u.videos.UpsertVideos(ctx, page.Videos); err != nil {
			// batch failed wholesale; fall back per item so one bad record
			// cannot sink its page
			for i := range page.Videos {
				one := page.Videos[i : i+1]
				if err := u.videos.UpsertVideos(ctx, one); err != nil {
					run.AddError(one[0].VideoID, "upsert", err.Error())
				} else {
					run.ItemsSucceeded++
				}
			}
		} else {
			run.ItemsSucceeded += len(page.Videos)
		}

		if !page.HasMore {
			break
		}
		cursor = page.Cursor
	}

	run.CompletedAt = time.Now().UTC()
	u.finish(run)
	return run, nil
}

// finish records and broadcasts the completed run. Failures here never fail
// the sync itself.
func (u *syncUsecase) finish(run *model.SyncRun) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if u.audit != nil {
		if err := u.audit.Record(ctx, run); err != nil {
			logger.GetLogger().WithField("error", err).Warn("sync audit record failed")
		}
	}
	for _, n := range u.notifiers {
		if n == nil {
			continue
		}
		if err := n.SyncCompleted(ctx, run); err != nil {
			logger.GetLogger().WithField("error", err).Warn("sync completion notify failed")
		}
	}
	logger.GetLogger().WithFields(map[string]interface{}{
		"run_id":          run.ID,
		"user_id":         run.UserID,
		"items_succeeded": run.ItemsSucceeded,
		"items_failed":    run.ItemsFailed,
		"pages":           run.PagesFetched,
		"cancelled":       run.Cancelled,
	}).Info("sync run completed")
}

func isCredentialFatal(err error) bool {
	return errors.Is(err, apperrors.ErrCredentialRevoked) ||
		errors.Is(err, apperrors.ErrUnauthorized) ||
		errors.Is(err, apperrors.ErrRefreshUnavailable) ||
		errors.Is(err, apperrors.ErrCredentialNotFound) ||
		errors.Is(err, apperrors.ErrCorruptedCredential)
}

func (u *syncUsecase) Summarize(ctx context.Context, userID string) (*dto.AnalyticsSummary, error) {
	videos, err := u.videos.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load synced videos: %w", err)
	}

	summary := &dto.AnalyticsSummary{VideoCount: len(videos)}

	if profile, err := u.profiles.Get(ctx, userID); err != nil {
		return nil, fmt.Errorf("load profile snapshot: %w", err)
	} else if profile != nil {
		summary.AccountStats = dto.AccountStats{
			FollowerCount:  profile.FollowerCount,
			FollowingCount: profile.FollowingCount,
			LikesCount:     profile.LikesCount,
			VideoCount:     profile.VideoCount,
		}
	}

	if len(videos) == 0 {
		return summary, nil
	}

	var views, likes, comments, shares int64
	for i := range videos {
		views += videos[i].ViewCount
		likes += videos[i].LikeCount
		comments += videos[i].CommentCount
		shares += videos[i].ShareCount
	}
	engagement := likes + comments + shares
	n := float64(len(videos))

	summary.EngagementData = dto.EngagementData{
		TotalViews:          views,
		TotalLikes:          likes,
		TotalComments:       comments,
		TotalShares:         shares,
		AvgViewsPerVideo:    float64(views) / n,
		AvgLikesPerVideo:    float64(likes) / n,
		AvgCommentsPerVideo: float64(comments) / n,
		AvgSharesPerVideo:   float64(shares) / n,
	}
	if views > 0 {
		summary.EngagementData.EngagementRate = float64(engagement) / float64(views) * 100
	}

	// videos arrive ordered by view_count desc, video_id asc
	top := len(videos)
	if top > DefaultTopVideos {
		top = DefaultTopVideos
	}
	for i := 0; i < top; i++ {
		v := &videos[i]
		tv := dto.TopVideo{
			VideoID:     v.VideoID,
			Description: v.Description,
			Views:       v.ViewCount,
			Likes:       v.LikeCount,
			Comments:    v.CommentCount,
			Shares:      v.ShareCount,
		}
		if v.ViewCount > 0 {
			tv.EngagementRate = float64(v.Engagement()) / float64(v.ViewCount) * 100
		}
		summary.TopVideos = append(summary.TopVideos, tv)
	}
	return summary, nil
}

// trendWeeks is how many recent posting weeks feed the trend comparison.
const trendWeeks = 4

func (u *syncUsecase) GrowthTrends(ctx context.Context, userID string) (*dto.GrowthTrends, error) {
	videos, err := u.videos.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load synced videos: %w", err)
	}

	trends := &dto.GrowthTrends{}
	if len(videos) < 2 {
		return trends, nil
	}

	type weekBucket struct {
		views      int64
		engagement float64 // summed per-video rates
		count      int
	}
	buckets := make(map[string]*weekBucket)
	for i := range videos {
		v := &videos[i]
		if v.CreateTime.IsZero() {
			continue
		}
		year, week := v.CreateTime.ISOWeek()
		key := fmt.Sprintf("%04d-W%02d", year, week)
		b := buckets[key]
		if b == nil {
			b = &weekBucket{}
			buckets[key] = b
		}
		b.views += v.ViewCount
		b.count++
		if v.ViewCount > 0 {
			b.engagement += float64(v.Engagement()) / float64(v.ViewCount) * 100
		}
	}
	if len(buckets) == 0 {
		return trends, nil
	}

	weeks := make([]string, 0, len(buckets))
	for key := range buckets {
		weeks = append(weeks, key)
	}
	sort.Strings(weeks)

	recent := weeks
	if len(recent) > trendWeeks {
		recent = recent[len(recent)-trendWeeks:]
	}
	if len(recent) >= 2 {
		views := make([]float64, len(recent))
		rates := make([]float64, len(recent))
		for i, key := range recent {
			b := buckets[key]
			views[i] = float64(b.views)
			if b.count > 0 {
				rates[i] = b.engagement / float64(b.count)
			}
		}
		trends.WeeklyViewTrend = halvesTrend(views)
		trends.WeeklyEngagementTrend = halvesTrend(rates)
	}

	trends.PostingFrequency = float64(len(videos)) / float64(len(buckets))

	best := weeks[0]
	for _, key := range weeks[1:] {
		if buckets[key].views > buckets[best].views {
			best = key
		}
	}
	trends.BestPerformingWeek = best
	return trends, nil
}

// halvesTrend is the percentage change of the later half's average over the
// earlier half's, after dropping leading zero weeks.
func halvesTrend(values []float64) float64 {
	var trimmed []float64
	for _, v := range values {
		if v > 0 || len(trimmed) > 0 {
			trimmed = append(trimmed, v)
		}
	}
	if len(trimmed) < 2 {
		return 0
	}
	mid := len(trimmed) / 2
	var first, second float64
	for _, v := range trimmed[:mid] {
		first += v
	}
	for _, v := range trimmed[mid:] {
		second += v
	}
	first /= float64(mid)
	second /= float64(len(trimmed) - mid)
	if first == 0 {
		if second > 0 {
			return 100
		}
		return 0
	}
	return (second - first) / first * 100
}

func (u *syncUsecase) VideoAnalytics(ctx context.Context, userID, videoID string) (*dto.VideoAnalytics, error) {
	videos, err := u.videos.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load synced videos: %w", err)
	}
	for i := range videos {
		if videos[i].VideoID == videoID {
			return videoWithRate(&videos[i]), nil
		}
	}

	// never synced: ask the provider directly
	fetched, err := u.client.QueryVideos(ctx, userID, []string{videoID})
	if err != nil {
		return nil, err
	}
	if len(fetched) == 0 {
		return nil, nil
	}
	if err := u.videos.UpsertVideos(ctx, fetched[:1]); err != nil {
		logger.GetLogger().WithFields(map[string]interface{}{
			"error":    err,
			"video_id": videoID,
		}).Warn("queried video could not be stored")
	}
	return videoWithRate(&fetched[0]), nil
}

func videoWithRate(v *model.TikTokVideo) *dto.VideoAnalytics {
	out := &dto.VideoAnalytics{TikTokVideo: *v}
	if v.ViewCount > 0 {
		out.EngagementRate = float64(v.Engagement()) / float64(v.ViewCount) * 100
	}
	return out
}

func (u *syncUsecase) RecentPerformance(ctx context.Context, userID string, days int) (*dto.RecentPerformance, error) {
	if days <= 0 {
		days = 30
	}
	videos, err := u.videos.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load synced videos: %w", err)
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -days)
	perf := &dto.RecentPerformance{PeriodDays: days}
	var rateSum float64
	for i := range videos {
		v := &videos[i]
		if v.CreateTime.Before(cutoff) {
			continue
		}
		perf.VideoCount++
		perf.TotalViews += v.ViewCount
		perf.TotalLikes += v.LikeCount
		perf.TotalComments += v.CommentCount
		perf.TotalShares += v.ShareCount
		perf.TotalEngagement += v.Engagement()
		if v.ViewCount > 0 {
			rateSum += float64(v.Engagement()) / float64(v.ViewCount) * 100
		}
	}
	if perf.VideoCount > 0 {
		perf.AvgEngagementRate = rateSum / float64(perf.VideoCount)
		perf.DailyAvgViews = float64(perf.TotalViews) / float64(days)
		perf.DailyAvgEngagement = float64(perf.TotalEngagement) / float64(days)
	}
	return perf, nil
}
