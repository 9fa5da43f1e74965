package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"sort"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"shopfront/internal/repository"
	"shopfront/internal/service"
)

type errorResponse struct {
	Error   string   `json:"error"`
	Details []string `json:"details,omitempty"`
}

func mapErrorToStatus(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidInput), errors.Is(err, service.ErrNoFile):
		return http.StatusBadRequest
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err as a JSON error body. Internal errors are logged and
// reported without their message.
func (s *Server) fail(c *gin.Context, err error) {
	status := mapErrorToStatus(err)
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		s.log.Error("request failed",
			zap.String("path", c.FullPath()),
			zap.String("request_id", service.RequestIDFrom(c.Request.Context())),
			zap.Error(err))
		c.JSON(status, errorResponse{Error: "internal error"})
		return
	}
	c.JSON(status, errorResponse{Error: err.Error()})
}

func badRequest(c *gin.Context, err error) {
	resp := errorResponse{Error: "invalid request"}
	var ve validator.ValidationErrors
	var se *json.SyntaxError
	var te *json.UnmarshalTypeError
	switch {
	case errors.As(err, &ve):
		resp.Error = "validation failed"
		for _, fe := range ve {
			resp.Details = append(resp.Details, describe(fe))
		}
	case errors.As(err, &se):
		resp.Error = "invalid json"
	case errors.As(err, &te):
		resp.Details = []string{fmt.Sprintf("%s must be %s", te.Field, te.Type)}
	default:
		resp.Details = []string{err.Error()}
	}
	c.JSON(http.StatusBadRequest, resp)
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", fe.Field(), fe.Param())
	case "min", "gte":
		return fmt.Sprintf("%s must be >= %s", fe.Field(), fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be > %s", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag())
	}
}

// onlyQuery rejects requests carrying query parameters outside allowed.
func onlyQuery(c *gin.Context, allowed ...string) bool {
	var unknown []string
	for k := range c.Request.URL.Query() {
		if !slices.Contains(allowed, k) {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) == 0 {
		return true
	}
	sort.Strings(unknown)
	details := make([]string, 0, len(unknown))
	for _, k := range unknown {
		details = append(details, "unknown query parameter "+k)
	}
	c.JSON(http.StatusBadRequest, errorResponse{Error: "validation failed", Details: details})
	return false
}
