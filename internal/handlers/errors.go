// internal/handlers/errors.go
package handlers

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/capdex/capdex-backend/internal/i18n"
	"github.com/capdex/capdex-backend/internal/services"
	"github.com/capdex/capdex-backend/internal/utils"
)

// respondError maps a service failure onto the HTTP error envelope.
// resource picks the translated not-found text when the error carries none.
func respondError(c *gin.Context, resource string, err error) {
	var se *services.Error
	if !errors.As(err, &se) {
		logrus.WithError(err).WithField("request_id", utils.GetRequestIDFromContext(c)).Error("Unclassified service error")
		utils.InternalErrorResponse(c, "")
		return
	}

	switch se.Kind {
	case services.KindInvalidArgument:
		if details := utils.GetValidationErrors(se.Err); len(details) > 0 {
			utils.ValidationErrorResponse(c, details)
			return
		}
		utils.BadRequestResponse(c, se.Message, nil)
	case services.KindNotFound:
		utils.NotFoundResponse(c, resource, se.Message)
	case services.KindConflict:
		utils.ConflictResponse(c, se.Message)
	default:
		logrus.WithError(err).WithField("request_id", utils.GetRequestIDFromContext(c)).Error("Store failure")
		utils.InternalErrorResponse(c, "")
	}
}

// parseIDParam reads a positive integer path parameter, answering 400 itself
// when it is malformed.
func parseIDParam(c *gin.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		utils.BadRequestResponse(c, i18n.T(utils.GetLangFromContext(c), i18n.KeyInvalidID, name), nil)
		return 0, false
	}
	return id, true
}

func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		utils.BadRequestResponse(c, i18n.T(utils.GetLangFromContext(c), i18n.KeyValidationInvalid, "input"), err.Error())
		return false
	}
	return true
}
