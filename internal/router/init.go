package router

import (
	"github.com/oksasatya/contacts-identity/internal/container"
	"github.com/oksasatya/contacts-identity/internal/router/modules"
)

// InitModules registers every feature module with the router registry.
// It should be called once during application startup.
func InitModules(r *Registry, c *container.Container) {
	r.Add(modules.NewUserModule(c.UserHandler, c.Identity))
	if c.Config.DebugMetricsEnabled {
		r.Add(modules.NewDebugModule())
	}
	if c.Config.AvatarDriver == "local" {
		r.Static(c.Config.AvatarPublicPath, c.Config.AvatarDir)
	}
}
