package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/mmsoftworks/godown_backend/models"
)

type StockController struct{}

func NewStockController() *StockController {
	return &StockController{}
}

func (ctrl *StockController) CreateGodown(c *gin.Context) {
	var input models.NewGodown
	if err := c.ShouldBindJSON(&input); err != nil {
		abortWithError(c, err)
		return
	}
	godown, err := models.CreateGodown(c.Request.Context(), &input)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, godown)
}

func (ctrl *StockController) GetGodowns(c *gin.Context) {
	godowns, err := models.GetGodowns(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, godowns)
}

func (ctrl *StockController) CreateStockItem(c *gin.Context) {
	var input models.NewStockItem
	if err := c.ShouldBindJSON(&input); err != nil {
		abortWithError(c, err)
		return
	}
	stockItem, err := models.CreateStockItem(c.Request.Context(), &input)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, stockItem)
}

func (ctrl *StockController) GetStockItems(c *gin.Context) {
	godownId, _ := strconv.Atoi(c.Query("godown_id"))
	stockItems, err := models.GetStockItems(c.Request.Context(), godownId)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, stockItems)
}

type restockInput struct {
	Cases int `json:"cases" binding:"required"`
}

func (ctrl *StockController) RestockStockItem(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	var input restockInput
	if err := c.ShouldBindJSON(&input); err != nil {
		abortWithError(c, err)
		return
	}
	stockItem, err := models.RestockStockItem(c.Request.Context(), id, input.Cases)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, stockItem)
}

func (ctrl *StockController) GetStockHistory(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	entries, err := models.GetStockHistory(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

func (ctrl *StockController) UpsertCatalogRate(c *gin.Context) {
	var input models.NewCatalogRate
	if err := c.ShouldBindJSON(&input); err != nil {
		abortWithError(c, err)
		return
	}
	rate, err := models.UpsertCatalogRate(c.Request.Context(), &input)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, rate)
}
