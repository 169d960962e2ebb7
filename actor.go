package postpdf

import "github.com/labstack/echo/v4"

// Capability names an action an Actor may be allowed to perform.
type Capability string

// Capabilities granted to the site administrator.
const (
	CapEditPosts     Capability = "edit_posts"
	CapManageOptions Capability = "manage_options"
)

// Actor is the identity behind a request. The zero value is anonymous.
type Actor struct {
	ID   string
	Name string
	caps map[Capability]bool
}

// Anonymous is the actor of requests without an admin session.
var Anonymous = Actor{ID: "0"}

func adminActor() Actor {
	return Actor{
		ID:   "admin",
		Name: "Administrator",
		caps: map[Capability]bool{
			CapEditPosts:     true,
			CapManageOptions: true,
		},
	}
}

// Authenticated reports whether the actor logged in.
func (a Actor) Authenticated() bool {
	return a.ID != "" && a.ID != Anonymous.ID
}

// Can reports whether the actor holds capability c.
func (a Actor) Can(c Capability) bool {
	return a.caps[c]
}

// nonceID is the actor identity a nonce is bound to.
func (a Actor) nonceID() string {
	if a.ID == "" {
		return Anonymous.ID
	}
	return a.ID
}

// CurrentActor resolves the actor from the session cookie.
func CurrentActor(c echo.Context) Actor {
	if IsAdmin(c) {
		return adminActor()
	}
	return Anonymous
}
