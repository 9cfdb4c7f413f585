package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/01moynul/bookshelf-admin/internal/drafts"
	"github.com/01moynul/bookshelf-admin/internal/metrics"
	"github.com/01moynul/bookshelf-admin/internal/middleware"
	"github.com/01moynul/bookshelf-admin/internal/models"
	"github.com/01moynul/bookshelf-admin/internal/session"
	"github.com/01moynul/bookshelf-admin/internal/submission"
	"github.com/01moynul/bookshelf-admin/internal/variation"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var errNotVariable = errors.New("product is not variable")

// BookBackend is the catalog REST backend that persists books.
type BookBackend interface {
	Submit(ctx context.Context, bearer string, p *submission.Payload) (*models.Book, error)
	FetchBook(ctx context.Context, bearer string, id int64) (*models.Book, error)
}

// AttributeSuggester proposes attribute drafts for a book.
type AttributeSuggester interface {
	SuggestAttributes(ctx context.Context, title, description string) ([]variation.AttributeDraft, error)
}

// Handlers struct holds all dependencies for our handlers.
type Handlers struct {
	Sessions      *session.Manager
	Backend       BookBackend
	Suggester     AttributeSuggester // nil when suggestions are not configured
	Metrics       *metrics.Metrics   // nil disables instrumentation
	MaxImageBytes int64
}

// session resolves the :id session of the authenticated user. It writes the error
// response itself and returns false when the request cannot go on.
func (h *Handlers) session(c *gin.Context) (*session.Session, bool) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User ID not found in context"})
		return nil, false
	}
	s, err := h.Sessions.Get(c.Param("id"), userID)
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	return s, true
}

func indexParam(c *gin.Context) (int, bool) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil || index < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid index"})
		return 0, false
	}
	return index, true
}

// respondView writes the current state of s.
func respondView(c *gin.Context, status int, s *session.Session) {
	view, err := s.View()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(status, view)
}

// respondError translates domain errors into HTTP responses.
func respondError(c *gin.Context, err error) {
	var (
		attrErr   *variation.AttributeValidationError
		refused   *variation.ExpansionRefusedError
		fieldErr  *variation.FieldValidationError
		transport *submission.TransportError
	)
	switch {
	case errors.Is(err, session.ErrNotFound), errors.Is(err, session.ErrClosed), errors.Is(err, drafts.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, session.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, session.ErrDraftsDisabled):
		c.JSON(http.StatusNotImplemented, gin.H{"error": err.Error()})
	case errors.Is(err, errNotVariable),
		errors.Is(err, variation.ErrIndexOutOfRange),
		errors.Is(err, variation.ErrUnknownField),
		errors.Is(err, variation.ErrInvalidValue),
		errors.Is(err, variation.ErrUnknownType):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.As(err, &attrErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "validation": attrErr.Result})
	case errors.As(err, &refused):
		c.JSON(http.StatusConflict, gin.H{
			"error":        err.Error(),
			"reason":       refused.Reason,
			"combinations": refused.Combinations,
		})
	case errors.As(err, &fieldErr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error(), "errors": fieldErr.Errors})
	case errors.As(err, &transport):
		zap.S().Warnw("catalog backend call failed", "status", transport.StatusCode, "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Catalog backend is unavailable"})
	default:
		zap.S().Errorw("request failed", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
