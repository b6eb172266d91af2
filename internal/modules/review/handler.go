package review

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"librarium/internal/domain"
	"librarium/internal/pkg/response"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterPublicRoutes(v1 *gin.RouterGroup) {
	v1.GET("/books/:id/reviews", h.ListByBook)
}

func (h *Handler) RegisterProtectedRoutes(protected *gin.RouterGroup) {
	reviews := protected.Group("/reviews")
	{
		reviews.POST("", h.Create)
		reviews.DELETE("/:id", h.Delete)
	}
}

func (h *Handler) Create(c *gin.Context) {
	var req CreateReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	rv, err := h.service.Create(c.Request.Context(), c.GetInt64("user_id"), req)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidRequest):
			response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid review")
		case errors.Is(err, ErrNotFound):
			response.Error(c, http.StatusNotFound, "NOT_FOUND", "Book not found")
		case errors.Is(err, ErrConflict):
			response.Error(c, http.StatusConflict, "REVIEW_EXISTS", "You have already reviewed this book")
		default:
			response.Error(c, http.StatusInternalServerError, "REVIEW_FAILED", "Failed to create review")
		}
		return
	}
	response.Success(c, http.StatusCreated, rv)
}

func (h *Handler) ListByBook(c *gin.Context) {
	bookID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", "Invalid book ID")
		return
	}

	reviews, err := h.service.ListByBook(c.Request.Context(), bookID)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "LIST_FAILED", "Failed to list reviews")
		return
	}
	response.Success(c, http.StatusOK, gin.H{"reviews": reviews})
}

func (h *Handler) Delete(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", "Invalid review ID")
		return
	}

	role := domain.UserRole(c.GetString("role"))
	err = h.service.Delete(c.Request.Context(), c.GetInt64("user_id"), role, id)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			response.Error(c, http.StatusNotFound, "NOT_FOUND", "Review not found")
		case errors.Is(err, ErrForbidden):
			response.Error(c, http.StatusForbidden, "FORBIDDEN", "Not your review")
		default:
			response.Error(c, http.StatusInternalServerError, "DELETE_FAILED", "Failed to delete review")
		}
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": "review deleted"})
}
