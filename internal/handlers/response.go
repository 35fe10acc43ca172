package handlers

import (
	"net/http"
	"strconv"

	"github.com/onegreenvn/stockplus-backend/internal/apperror"
	"github.com/onegreenvn/stockplus-backend/internal/middleware"
	"github.com/onegreenvn/stockplus-backend/internal/policy"
	"github.com/onegreenvn/stockplus-backend/internal/utils"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

func respondOK(c *gin.Context, status int, message string, data interface{}) {
	body := gin.H{"success": true, "message": message}
	if data != nil {
		body["data"] = data
	}
	c.JSON(status, body)
}

func respondPage(c *gin.Context, items interface{}, total int64, page, pageSize int) {
	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"data":       items,
		"pagination": utils.CalculatePaginationInfo(int(total), page, pageSize),
	})
}

// respondError writes the error envelope. Storage failures stay opaque to the client.
func respondError(c *gin.Context, err error) {
	appErr := apperror.From(err)
	if appErr.Kind == apperror.KindStorage {
		logrus.WithFields(logrus.Fields{
			"method":     c.Request.Method,
			"path":       c.FullPath(),
			"request_id": c.GetString(middleware.RequestIDKey),
		}).WithError(appErr.Err).Error("Request failed")
		sentry.CaptureException(appErr)
	}
	c.JSON(appErr.HTTPStatus(), gin.H{
		"success": false,
		"code":    appErr.Code,
		"error":   appErr.Message,
	})
}

func respondBindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"success": false,
		"code":    "invalid_request",
		"error":   "Invalid request data",
		"details": err.Error(),
	})
}

// actorFrom returns the caller set by the bearer token middleware
func actorFrom(c *gin.Context) policy.Actor {
	if actor, ok := c.Get(middleware.ActorKey); ok {
		return actor.(policy.Actor)
	}
	return policy.Actor{}
}

func uintParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		respondError(c, apperror.Validation("invalid_id", name+" must be a positive number"))
		return 0, false
	}
	return uint(id), true
}

func optionalUintQuery(c *gin.Context, name string) (*uint, bool) {
	val, err := utils.OptionalUint(c.Query(name))
	if err != nil {
		respondError(c, apperror.Validation("invalid_"+name, name+" must be a number"))
		return nil, false
	}
	return val, true
}

func paginationFrom(c *gin.Context) (int, int) {
	page, pageSize := utils.ParsePaginationFromQuery(c.Query("page"), c.Query("page_size"))
	return utils.ValidateAndNormalizePagination(page, pageSize)
}
