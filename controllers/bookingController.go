package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/mmsoftworks/godown_backend/models"
	"github.com/mmsoftworks/godown_backend/utils"
)

type BookingController struct {
	svc *models.BookingService
}

func NewBookingController(svc *models.BookingService) *BookingController {
	return &BookingController{svc: svc}
}

// statusForError maps domain errors onto HTTP statuses.
func statusForError(err error) int {
	switch {
	case errors.Is(err, utils.ErrorRecordNotFound):
		return http.StatusNotFound
	case errors.Is(err, utils.ErrorValidation):
		return http.StatusBadRequest
	case errors.Is(err, utils.ErrorInsufficientStock),
		errors.Is(err, utils.ErrorChallanAlreadyConverted),
		errors.Is(err, utils.ErrorBookingFromChallan):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func abortWithError(c *gin.Context, err error) {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		c.JSON(http.StatusBadRequest, gin.H{"errors": utils.ProcessValidationErrors(err)})
		return
	}
	c.JSON(statusForError(err), gin.H{"error": err.Error()})
}

func pathId(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

func (ctrl *BookingController) CreateBooking(c *gin.Context) {
	var input models.NewBooking
	if err := c.ShouldBindJSON(&input); err != nil {
		abortWithError(c, err)
		return
	}

	booking, err := ctrl.svc.CreateBooking(c.Request.Context(), &input)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, booking)
}

func (ctrl *BookingController) UpdateBooking(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	var input models.NewBooking
	if err := c.ShouldBindJSON(&input); err != nil {
		abortWithError(c, err)
		return
	}

	booking, err := ctrl.svc.UpdateBooking(c.Request.Context(), id, &input)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, booking)
}

func (ctrl *BookingController) DeleteBooking(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	if err := ctrl.svc.DeleteBooking(c.Request.Context(), id); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": id})
}

func (ctrl *BookingController) GetBooking(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	booking, err := models.GetBooking(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, booking)
}

func (ctrl *BookingController) GetBookings(c *gin.Context) {
	fromDate, err := parseDateQuery(c.Query("from_date"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid from_date"})
		return
	}
	toDate, err := parseDateQuery(c.Query("to_date"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid to_date"})
		return
	}

	bookings, err := models.GetBookings(c.Request.Context(), fromDate, toDate)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, bookings)
}

func (ctrl *BookingController) CreateChallan(c *gin.Context) {
	var input models.NewChallan
	if err := c.ShouldBindJSON(&input); err != nil {
		abortWithError(c, err)
		return
	}

	challan, err := ctrl.svc.CreateChallan(c.Request.Context(), &input)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, challan)
}

func (ctrl *BookingController) GetChallans(c *gin.Context) {
	pendingOnly := c.Query("pending") == "true"
	challans, err := models.GetChallans(c.Request.Context(), pendingOnly)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, challans)
}

func (ctrl *BookingController) ConvertChallan(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	booking, err := ctrl.svc.ConvertChallan(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, booking)
}

func parseDateQuery(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	return time.Parse("2006-01-02", value)
}
