package httpkit

import (
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// RoleBuyer owns quotations and reads leaderboards.
	RoleBuyer = "buyer"
	// RoleSupplier offers on quotations it was invited to.
	RoleSupplier = "supplier"
)

// Actor is the caller AuthRequired admitted. ID is the token subject: the
// buyer id for buyers, the supplier id on the portal.
type Actor struct {
	ID    uuid.UUID
	Roles []string
}

func (a Actor) HasRole(role string) bool {
	return slices.Contains(a.Roles, role)
}

func (a Actor) IsBuyer() bool {
	return a.HasRole(RoleBuyer)
}

func (a Actor) IsSupplier() bool {
	return a.HasRole(RoleSupplier)
}

// Role picks the side the actor acts on. A token holding both roles acts as
// the buyer.
func (a Actor) Role() string {
	switch {
	case a.IsBuyer():
		return RoleBuyer
	case a.IsSupplier():
		return RoleSupplier
	default:
		return ""
	}
}

func setActor(c *gin.Context, actor Actor) {
	c.Set(contextActorKey, actor)
}

// CurrentActor returns the actor stored by AuthRequired, if any.
func CurrentActor(c *gin.Context) (Actor, bool) {
	value, ok := c.Get(contextActorKey)
	if !ok {
		return Actor{}, false
	}
	actor, ok := value.(Actor)
	if !ok || actor.ID == uuid.Nil {
		return Actor{}, false
	}
	return actor, true
}

// RequireActor answers 401 when the request carries no actor.
func RequireActor(c *gin.Context) (Actor, bool) {
	actor, ok := CurrentActor(c)
	if !ok {
		abortUnauthorized(c, "unauthorized")
		return Actor{}, false
	}
	return actor, true
}

// MustGetActor returns the caller's id when it acts as role. A missing token
// answers 401; a buyer on a supplier route, or the reverse, answers 403.
func MustGetActor(c *gin.Context, role string) (uuid.UUID, bool) {
	actor, ok := RequireActor(c)
	if !ok {
		return uuid.Nil, false
	}
	if !actor.HasRole(role) {
		abortForbidden(c)
		return uuid.Nil, false
	}
	return actor.ID, true
}

// ParamUUID parses a path parameter, answering 400 when it is not a UUID.
func ParamUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		Error(c, http.StatusBadRequest, "invalid "+name, nil)
		return uuid.Nil, false
	}
	return id, true
}
