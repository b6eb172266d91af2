package wishlist

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"librarium/internal/domain"
	"librarium/internal/pkg/response"
	"librarium/internal/repository"
)

type AddRequest struct {
	BookID int64 `json:"book_id" binding:"required"`
}

type Handler struct {
	wishlist *repository.WishlistRepository
	books    *repository.BookRepository
}

func NewHandler(wishlist *repository.WishlistRepository, books *repository.BookRepository) *Handler {
	return &Handler{wishlist: wishlist, books: books}
}

func (h *Handler) RegisterProtectedRoutes(protected *gin.RouterGroup) {
	g := protected.Group("/wishlist")
	{
		g.GET("", h.List)
		g.POST("", h.Add)
		g.DELETE("/:bookId", h.Remove)
	}
}

func (h *Handler) Add(c *gin.Context) {
	var req AddRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	if _, err := h.books.GetByID(c.Request.Context(), req.BookID); err != nil {
		response.Error(c, http.StatusNotFound, "NOT_FOUND", "Book not found")
		return
	}

	item := &domain.WishlistItem{UserID: c.GetInt64("user_id"), BookID: req.BookID}
	if err := h.wishlist.Add(c.Request.Context(), item); err != nil {
		response.Error(c, http.StatusInternalServerError, "WISHLIST_FAILED", "Failed to add to wishlist")
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"message": "added to wishlist"})
}

func (h *Handler) Remove(c *gin.Context) {
	bookID, err := strconv.ParseInt(c.Param("bookId"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", "Invalid book ID")
		return
	}

	affected, err := h.wishlist.Remove(c.Request.Context(), c.GetInt64("user_id"), bookID)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "WISHLIST_FAILED", "Failed to remove from wishlist")
		return
	}
	if affected == 0 {
		response.Error(c, http.StatusNotFound, "NOT_FOUND", "Book is not on your wishlist")
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": "removed from wishlist"})
}

func (h *Handler) List(c *gin.Context) {
	items, err := h.wishlist.ListByUser(c.Request.Context(), c.GetInt64("user_id"))
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "WISHLIST_FAILED", "Failed to load wishlist")
		return
	}
	response.Success(c, http.StatusOK, gin.H{"items": items})
}
