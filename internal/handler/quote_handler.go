package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/zolffix/internal/model"
)

// GetQuoteFeed 返回一批语录；category 为空时按用户偏好挑选
func (a *API) GetQuoteFeed(c *gin.Context) {
	count, ok := parseIntQuery(c, "count", 0)
	if !ok {
		respondError(c, http.StatusBadRequest, "count must be a number")
		return
	}

	items, err := a.quotes.Feed(requestContext(c), currentUserID(c), c.Query("category"), count)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"quotes": items})
}

func (a *API) ListQuoteCategories(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"categories": model.QuoteCategories})
}

func (a *API) ListSavedQuotes(c *gin.Context) {
	quotes, err := a.quotes.Saved(requestContext(c), currentUserID(c))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"quotes": quotes})
}

func (a *API) ListLikedQuotes(c *gin.Context) {
	quotes, err := a.quotes.Liked(requestContext(c), currentUserID(c))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"quotes": quotes})
}

// ToggleSavedQuote 收藏或取消收藏
func (a *API) ToggleSavedQuote(c *gin.Context) {
	quote, ok := bindQuote(c)
	if !ok {
		return
	}

	saved, err := a.quotes.ToggleSaved(requestContext(c), currentUserID(c), quote)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": quote.ID, "saved": saved})
}

// ToggleLikedQuote 点赞或取消点赞
func (a *API) ToggleLikedQuote(c *gin.Context) {
	quote, ok := bindQuote(c)
	if !ok {
		return
	}

	liked, err := a.quotes.ToggleLiked(requestContext(c), currentUserID(c), quote)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": quote.ID, "liked": liked})
}

func bindQuote(c *gin.Context) (model.Quote, bool) {
	var quote model.Quote
	if !bindJSON(c, &quote, "invalid quote payload") {
		return model.Quote{}, false
	}
	quote.ID = strings.TrimSpace(quote.ID)
	if quote.ID == "" || strings.TrimSpace(quote.Text) == "" {
		respondError(c, http.StatusBadRequest, "quote id and text are required")
		return model.Quote{}, false
	}
	return quote, true
}
