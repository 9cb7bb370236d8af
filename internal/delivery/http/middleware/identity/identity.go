package http_identity_middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	http_common "github.com/reelroom/core/internal/delivery/http/common"
)

const (
	HeaderUserID = "X-User-ID"
	ContextKey   = "user_id"
)

// Middleware trusts the identity layer in front of this service: the
// header carries an already-authenticated user id, we only require that
// it is present and well-formed.
func Middleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		raw := ctx.GetHeader(HeaderUserID)
		if raw == "" {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, http_common.ErrorResponse{
				Message: "missing user id",
			})
			return
		}

		userID, err := uuid.Parse(raw)
		if err != nil {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, http_common.ErrorResponse{
				Message: "malformed user id",
			})
			return
		}

		ctx.Set(ContextKey, userID)
		ctx.Next()
	}
}

func UserID(ctx *gin.Context) (uuid.UUID, bool) {
	val, ok := ctx.Get(ContextKey)
	if !ok {
		return uuid.Nil, false
	}
	userID, ok := val.(uuid.UUID)
	return userID, ok
}
