package server

import "github.com/gin-gonic/gin"

// Registrar is the common interface all HTTP service packages implement
// to attach their routes. Public routes skip authentication; protected
// routes run behind the JWT middleware.
type Registrar interface {
	Register(public, protected *gin.RouterGroup)
}
