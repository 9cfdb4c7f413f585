package handlers

import (
	"errors"
	"net/http"

	"github.com/01moynul/bookshelf-admin/internal/metrics"
	"github.com/01moynul/bookshelf-admin/internal/middleware"
	"github.com/01moynul/bookshelf-admin/internal/submission"
	"github.com/01moynul/bookshelf-admin/internal/variation"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// CheckSession is the handler for POST /v1/sessions/:id/check
// It runs the pre-submit checks without sending anything.
func (h *Handlers) CheckSession(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	var mapped variation.MappedErrors
	if err := s.Do(func(f *variation.ProductForm) error {
		mapped = variation.MapErrors(variation.CheckVariations(f))
		return nil
	}); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"valid": mapped.Count() == 0, "errors": mapped})
}

// SubmitSession is the handler for POST /v1/sessions/:id/submit
// A successful submit closes the session and deletes its draft.
func (h *Handlers) SubmitSession(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}

	// 1. --- Check & encode under the session lock ---
	var payload *submission.Payload
	err := s.Do(func(f *variation.ProductForm) error {
		if err := variation.Check(f); err != nil {
			return err
		}
		var err error
		payload, err = submission.Encode(f)
		return err
	})
	if err != nil {
		var fieldErr *variation.FieldValidationError
		if errors.As(err, &fieldErr) {
			h.Metrics.ObserveSubmission(metrics.SubmissionIncomplete)
		}
		respondError(c, err)
		return
	}

	// 2. --- Send to the catalog backend ---
	book, err := h.Backend.Submit(c.Request.Context(), middleware.Bearer(c), payload)
	if err != nil {
		var fieldErr *variation.FieldValidationError
		if errors.As(err, &fieldErr) {
			h.Metrics.ObserveSubmission(metrics.SubmissionRejected)
		} else {
			h.Metrics.ObserveSubmission(metrics.SubmissionFailed)
		}
		respondError(c, err)
		return
	}

	// 3. --- Done: tear the session down ---
	h.Sessions.Finish(c.Request.Context(), s)

	status, outcome, message := http.StatusCreated, metrics.SubmissionCreated, "Book created successfully"
	if payload.BookID != nil {
		status, outcome, message = http.StatusOK, metrics.SubmissionUpdated, "Book updated successfully"
	}
	h.Metrics.ObserveSubmission(outcome)
	zap.S().Infow("book submitted", "session", s.ID, "book", book.ID, "variations", payload.Variations)

	c.JSON(status, gin.H{"message": message, "book": book})
}
