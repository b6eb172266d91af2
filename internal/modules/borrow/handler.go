package borrow

import (
	"errors"
	"net/http"
	"strconv"
	"time"

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

func (h *Handler) RegisterProtectedRoutes(protected *gin.RouterGroup) {
	loans := protected.Group("/loans")
	{
		loans.POST("", h.Borrow)
		loans.GET("", h.List)
		loans.POST("/:id/return", h.Return)
	}
}

func (h *Handler) Borrow(c *gin.Context) {
	var req BorrowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	userID := c.GetInt64("user_id")
	loan, err := h.service.Borrow(c.Request.Context(), userID, req.BookID)
	if err != nil {
		switch {
		case errors.Is(err, ErrBookNotFound):
			response.Error(c, http.StatusNotFound, "NOT_FOUND", "Book not found")
		case errors.Is(err, ErrNoCopies):
			response.Error(c, http.StatusConflict, "NO_COPIES", "No copies available")
		case errors.Is(err, ErrAlreadyBorrowed):
			response.Error(c, http.StatusConflict, "ALREADY_BORROWED", "You already have this book checked out")
		default:
			response.Error(c, http.StatusInternalServerError, "BORROW_FAILED", "Failed to borrow book")
		}
		return
	}

	response.Success(c, http.StatusCreated, toLoanResponse(loan))
}

func (h *Handler) Return(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", "Invalid loan ID")
		return
	}

	userID := c.GetInt64("user_id")
	loan, err := h.service.Return(c.Request.Context(), userID, id)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			response.Error(c, http.StatusNotFound, "NOT_FOUND", "Loan not found")
		case errors.Is(err, ErrForbidden):
			response.Error(c, http.StatusForbidden, "FORBIDDEN", "Not your loan")
		case errors.Is(err, ErrAlreadyReturned):
			response.Error(c, http.StatusConflict, "ALREADY_RETURNED", "Loan is already returned")
		default:
			response.Error(c, http.StatusInternalServerError, "RETURN_FAILED", "Failed to return book")
		}
		return
	}

	response.Success(c, http.StatusOK, toLoanResponse(loan))
}

func (h *Handler) List(c *gin.Context) {
	userID := c.GetInt64("user_id")
	loans, err := h.service.ListByUser(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "LIST_FAILED", "Failed to list loans")
		return
	}

	out := make([]LoanResponse, 0, len(loans))
	for i := range loans {
		out = append(out, toLoanResponse(&loans[i]))
	}
	response.Success(c, http.StatusOK, gin.H{"loans": out})
}

func toLoanResponse(loan *domain.Borrow) LoanResponse {
	return LoanResponse{
		ID:         loan.ID,
		BookID:     loan.BookID,
		BookTitle:  loan.Book.Title,
		BorrowedAt: loan.BorrowedAt,
		DueAt:      loan.DueAt,
		ReturnedAt: loan.ReturnedAt,
		Status:     string(loan.Status(time.Now())),
	}
}
