package handler

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/repository"
	"github.com/jwalitptl/clinic-api/pkg/errors"
)

// UUIDParam parses the path parameter name as a uuid.
func UUIDParam(c *gin.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, errors.BadRequest("invalid "+name, err)
	}
	return id, nil
}

// IndexParam parses a non-negative integer path parameter.
func IndexParam(c *gin.Context, name string) (int, error) {
	i, err := strconv.Atoi(c.Param(name))
	if err != nil || i < 0 {
		return 0, errors.BadRequest("invalid "+name, err)
	}
	return i, nil
}

// Order reads ?sort=<column>&order=asc|desc. An empty sort leaves the adapter default.
func Order(c *gin.Context) (repository.OrderBy, error) {
	column := strings.TrimSpace(c.Query("sort"))
	switch strings.ToLower(c.DefaultQuery("order", "asc")) {
	case "asc":
		return repository.OrderBy{Column: column}, nil
	case "desc":
		return repository.OrderBy{Column: column, Descending: true}, nil
	default:
		return repository.OrderBy{}, errors.BadRequest("order must be asc or desc", nil)
	}
}

// BindJSON decodes the request body into dst.
func BindJSON(c *gin.Context, dst interface{}) error {
	if err := c.ShouldBindJSON(dst); err != nil {
		return errors.BadRequest("invalid request body", err)
	}
	return nil
}
