package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dmitrijs2005/docverify/internal/common"
)

const msgInternal = "Internal server error"

func statusOf(err error) int {
	switch {
	case errors.Is(err, common.ErrorValidation), errors.Is(err, common.ErrorAlreadyExists):
		return http.StatusBadRequest
	case errors.Is(err, common.ErrorUnauthorized),
		errors.Is(err, common.ErrInvalidToken),
		errors.Is(err, common.ErrTokenExpired):
		return http.StatusUnauthorized
	case errors.Is(err, common.ErrMFARequired),
		errors.Is(err, common.ErrorForbidden),
		errors.Is(err, common.ErrAccountLocked):
		return http.StatusForbidden
	case errors.Is(err, common.ErrorNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func errorBody(err error) gin.H {
	body := gin.H{"error": common.PublicMessage(err, msgInternal)}
	if errors.Is(err, common.ErrMFARequired) {
		body["requires_mfa"] = true
	}
	return body
}

func writeError(c *gin.Context, err error) {
	c.JSON(statusOf(err), errorBody(err))
}

func abortWithError(c *gin.Context, err error) {
	c.AbortWithStatusJSON(statusOf(err), errorBody(err))
}
