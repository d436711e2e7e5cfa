package api

import (
	"net/http"

	"portfolio-dashboard/internal/middleware"
	"portfolio-dashboard/internal/services"

	"github.com/gin-gonic/gin"
)

// sessionScope resolves the request session into a caller and a backend
// account bound to the session's token
type sessionScope struct {
	accounts AccountFactory
	onExpire func(caller services.Caller)
}

func (s *sessionScope) resolve(c *gin.Context) (services.Caller, services.Account, bool) {
	session, ok := middleware.GetSession(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, CreateErrorResponse(
			"AUTH_REQUIRED",
			"Authentication required",
			"",
			getTraceID(c),
		))
		return services.Caller{}, nil, false
	}

	caller := services.Caller{Owner: session.Fingerprint(), Subject: session.Info().Subject}
	if s.onExpire != nil {
		session.AddExpireHook(func() { s.onExpire(caller) })
	}
	return caller, s.accounts(session), true
}
