package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/zolffix/internal/model"
	"github.com/zolffix/internal/service"
)

// ListJournal 按时间倒序返回日记
func (a *API) ListJournal(c *gin.Context) {
	entries, err := a.journal.List(requestContext(c), currentUserID(c))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

// AddJournalEntry 新建日记
func (a *API) AddJournalEntry(c *gin.Context) {
	var input service.JournalInput
	if !bindJSON(c, &input, "invalid journal payload") {
		return
	}

	entry, err := a.journal.Add(requestContext(c), currentUserID(c), input)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"entry": entry})
}

func (a *API) DeleteJournalEntry(c *gin.Context) {
	if err := a.journal.Delete(requestContext(c), currentUserID(c), c.Param("id")); err != nil {
		handleServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (a *API) ListMoods(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"moods": model.Moods})
}
