package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RunScans triggers one batch run of every due grid and custom keyword. A
// selector failure returns 500 with whatever partial summary the run
// produced; unit-level failures are part of the summary, not an error.
func (a Api) RunScans(c *gin.Context) {
	summary, err := a.service.RunDueScans(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "summary": summary, "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "summary": summary})
}
