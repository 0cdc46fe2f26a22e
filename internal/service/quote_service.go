package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/zolffix/internal/logger"
	"github.com/zolffix/internal/metrics"
	"github.com/zolffix/internal/model"
	"github.com/zolffix/internal/storage"
)

// ErrQuoteInvalidInput 在分类未知或语录缺字段时返回
var ErrQuoteInvalidInput = errors.New("invalid quote input")

const (
	defaultFeedSize = 5
	maxFeedSize     = 20
)

var fallbackNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://zolffix.app/quotes/fallback"))

var fallbackTemplates = []string{
	"Even on the quietest nights, %s keeps teaching you how to begin again.",
	"Let %s be the small light you carry, not the weight you drag.",
	"What %s breaks open in you is where the new strength grows.",
	"You are allowed to outgrow the version of %s that once held you.",
	"Stay with %s a little longer; it is shaping you into someone braver.",
}

// FallbackQuotes 返回确定性的占位语录，语录接口不可用时使用。相同参数的 ID 保持不变。
func FallbackQuotes(category string, count int) []model.Quote {
	if count <= 0 {
		count = 1
	}
	topic := strings.ToLower(strings.TrimSpace(category))
	quotes := make([]model.Quote, 0, count)
	for i := range count {
		name := fmt.Sprintf("%s#%d", category, i)
		quotes = append(quotes, model.Quote{
			ID:       uuid.NewSHA1(fallbackNamespace, []byte(name)).String(),
			Text:     fmt.Sprintf(fallbackTemplates[i%len(fallbackTemplates)], topic),
			Author:   QuoteAuthor,
			Category: category,
			ImageURL: QuoteImageURL([]string{category}, uint64(i+1)),
		})
	}
	return quotes
}

// FavoritesFunc 返回用户偏好的分类
type FavoritesFunc func(ctx context.Context, userID string) []string

// QuoteService 负责语录流以及收藏/点赞集合
type QuoteService struct {
	source    QuoteSource
	saved     *collection[model.Quote]
	liked     *collection[model.Quote]
	favorites FavoritesFunc
	pick      func(n int) int
}

// QuoteFeedItem 是语录流中的一条，附带当前用户的收藏/点赞状态
type QuoteFeedItem struct {
	model.Quote
	Saved    bool `json:"saved"`
	Liked    bool `json:"liked"`
	Fallback bool `json:"fallback"`
}

func NewQuoteService(watchCtx context.Context, store storage.Store, source QuoteSource, favorites FavoritesFunc) *QuoteService {
	return &QuoteService{
		source:    source,
		saved:     newCollection[model.Quote](watchCtx, store, storage.CollectionSavedQuotes, nil),
		liked:     newCollection[model.Quote](watchCtx, store, storage.CollectionLikedQuotes, nil),
		favorites: favorites,
		pick:      rand.IntN,
	}
}

// Feed 返回 count 条语录。category 为空时从用户偏好中随机挑选。
// 语录源出错或返回空结果时退回占位语录，不向调用方暴露错误。
func (s *QuoteService) Feed(ctx context.Context, userID, category string, count int) ([]QuoteFeedItem, error) {
	if count <= 0 {
		count = defaultFeedSize
	}
	count = min(count, maxFeedSize)

	category = strings.TrimSpace(category)
	if category == "" {
		category = s.pickCategory(ctx, userID)
	} else if !model.IsQuoteCategory(category) {
		return nil, fmt.Errorf("%w: unknown category %q", ErrQuoteInvalidInput, category)
	} else {
		category = canonicalCategory(category)
	}

	fallback := false
	var quotes []model.Quote
	if s.source != nil {
		var err error
		quotes, err = s.source.RequestQuotes(ctx, category, count)
		switch {
		case err != nil:
			reason := "error"
			if errors.Is(err, ErrQuoteAPIKeyMissing) {
				reason = "no_api_key"
			} else if IsRateLimited(err) {
				reason = "rate_limited"
			}
			logger.Warn("quote source failed, using fallback", "category", category, "err", err)
			metrics.TrackQuoteFallback(reason)
			fallback = true
		case len(quotes) == 0:
			metrics.TrackQuoteFallback("empty")
			fallback = true
		}
	} else {
		metrics.TrackQuoteFallback("no_source")
		fallback = true
	}
	if fallback {
		quotes = FallbackQuotes(category, count)
	}

	saved, err := s.saved.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	liked, err := s.liked.load(ctx, userID)
	if err != nil {
		return nil, err
	}

	items := make([]QuoteFeedItem, 0, len(quotes))
	for _, quote := range quotes {
		items = append(items, QuoteFeedItem{
			Quote:    quote,
			Saved:    indexOf(saved, quoteKey, quote.ID) >= 0,
			Liked:    indexOf(liked, quoteKey, quote.ID) >= 0,
			Fallback: fallback,
		})
	}
	return items, nil
}

func (s *QuoteService) pickCategory(ctx context.Context, userID string) string {
	var candidates []string
	if s.favorites != nil {
		for _, category := range s.favorites(ctx, userID) {
			if model.IsQuoteCategory(category) {
				candidates = append(candidates, canonicalCategory(category))
			}
		}
	}
	if len(candidates) == 0 {
		candidates = model.QuoteCategories
	}
	return candidates[s.pick(len(candidates))]
}

// ToggleSaved 切换语录的收藏状态，返回切换后是否已收藏
func (s *QuoteService) ToggleSaved(ctx context.Context, userID string, quote model.Quote) (bool, error) {
	return toggleMembership(ctx, s.saved, userID, quote)
}

// ToggleLiked 切换语录的点赞状态，返回切换后是否已点赞
func (s *QuoteService) ToggleLiked(ctx context.Context, userID string, quote model.Quote) (bool, error) {
	return toggleMembership(ctx, s.liked, userID, quote)
}

func (s *QuoteService) Saved(ctx context.Context, userID string) ([]model.Quote, error) {
	return s.saved.load(ctx, userID)
}

func (s *QuoteService) Liked(ctx context.Context, userID string) ([]model.Quote, error) {
	return s.liked.load(ctx, userID)
}

func toggleMembership(ctx context.Context, coll *collection[model.Quote], userID string, quote model.Quote) (bool, error) {
	quote.ID = strings.TrimSpace(quote.ID)
	quote.Text = strings.TrimSpace(quote.Text)
	if quote.ID == "" || quote.Text == "" {
		return false, fmt.Errorf("%w: id and text are required", ErrQuoteInvalidInput)
	}

	member := false
	_, err := coll.update(ctx, userID, func(quotes []model.Quote) ([]model.Quote, error) {
		if idx := indexOf(quotes, quoteKey, quote.ID); idx >= 0 {
			return slices.Delete(quotes, idx, idx+1), nil
		}
		member = true
		return append([]model.Quote{quote}, quotes...), nil
	})
	if err != nil {
		return false, fmt.Errorf("toggle %s: %w", coll.name, err)
	}
	return member, nil
}

func quoteKey(q model.Quote) string { return q.ID }

func canonicalCategory(name string) string {
	for _, category := range model.QuoteCategories {
		if strings.EqualFold(category, strings.TrimSpace(name)) {
			return category
		}
	}
	return name
}
