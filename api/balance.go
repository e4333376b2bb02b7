package api

import (
	"net/http"

	model2 "github.com/gridrank/gridrank/api/model"

	"github.com/gin-gonic/gin"
)

func (a Api) GetBalance(c *gin.Context) {
	accountID, passed := c.Params.Get("account_id")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "account_id is required. pass account_id in the route /:account_id"})
		return
	}

	resp, err := a.service.GetBalance(c.Request.Context(), accountID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (a Api) TopUpBalance(c *gin.Context) {
	accountID, passed := c.Params.Get("account_id")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "account_id is required. pass account_id in the route /:account_id"})
		return
	}

	var topUp model2.TopUpRequest
	if err := c.ShouldBindJSON(&topUp); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := topUp.ValidateTopUpRequest(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	resp, err := a.service.TopUp(c.Request.Context(), accountID, topUp.Amount, topUp.Reference, topUp.MetaData)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, resp)
}
