package postpdf

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/eringen/postpdf/content"
)

func (a *App) handleAdmin(c echo.Context) error {
	if !IsAdmin(c) {
		return Render(c, a.Views.AdminLogin(false, CsrfToken(c)))
	}
	return a.renderAdminDashboard(c, c.QueryParam("msg"))
}

func (a *App) handleAdminLogin(c echo.Context) error {
	ip := c.RealIP()
	if !a.loginLimiter.Check(ip) {
		return c.String(http.StatusTooManyRequests, "Too many login attempts. Try again later.")
	}
	pass := c.FormValue("password")
	if subtle.ConstantTimeCompare([]byte(pass), []byte(a.Config.AdminPassword)) == 1 {
		a.loginLimiter.Reset(ip)
		if err := setAdminSession(c); err != nil {
			return err
		}
		return c.Redirect(http.StatusSeeOther, "/admin/")
	}
	a.loginLimiter.Record(ip)
	return RenderStatus(c, http.StatusUnauthorized, a.Views.AdminLogin(true, CsrfToken(c)))
}

func handleAdminLogout(c echo.Context) error {
	if err := clearAdminSession(c); err != nil {
		return err
	}
	return c.Redirect(http.StatusSeeOther, "/admin/")
}

func adminRedirect(c echo.Context, msg string) error {
	return c.Redirect(http.StatusSeeOther, "/admin/?msg="+url.QueryEscape(msg))
}

func (a *App) handleAdminSave(c echo.Context) error {
	if !CurrentActor(c).Can(CapEditPosts) {
		return c.Redirect(http.StatusSeeOther, "/admin/")
	}
	if err := c.Request().ParseForm(); err != nil {
		return err
	}
	var id int64
	if raw := strings.TrimSpace(c.FormValue("id")); raw != "" {
		var ok bool
		if id, ok = parsePostID(raw); !ok {
			return adminRedirect(c, "Invalid post ID.")
		}
	}
	title := strings.TrimSpace(c.FormValue("title"))
	slug := strings.TrimSpace(c.FormValue("slug"))
	if slug == "" {
		slug = Slugify(title)
	}
	if slug == "" {
		return adminRedirect(c, "Slug is required. Add a title or slug.")
	}
	date := time.Now().UTC()
	if raw := strings.TrimSpace(c.FormValue("date")); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return adminRedirect(c, "Invalid date format. Use YYYY-MM-DD.")
		}
		date = t
	}
	status := content.ParseStatus(c.FormValue("status"))
	if status == content.StatusOther {
		status = content.StatusDraft
	}
	author := strings.TrimSpace(c.FormValue("author"))
	if author == "" {
		author = a.Config.Name
	}
	if _, err := a.Store.SavePost(c.Request().Context(), content.Item{
		ID:       id,
		Slug:     slug,
		Title:    title,
		Author:   author,
		Date:     date,
		Status:   status,
		Password: c.FormValue("password"),
		Body:     c.FormValue("content"),
	}); err != nil {
		if errors.Is(err, content.ErrNotFound) {
			return adminRedirect(c, "Post not found.")
		}
		return err
	}
	return adminRedirect(c, "saved")
}

func (a *App) handleAdminDelete(c echo.Context) error {
	if !CurrentActor(c).Can(CapEditPosts) {
		return c.Redirect(http.StatusSeeOther, "/admin/")
	}
	id, ok := parsePostID(c.Param("id"))
	if !ok {
		return c.NoContent(http.StatusNotFound)
	}
	if err := a.Store.DeletePost(c.Request().Context(), id); err != nil {
		return err
	}
	return a.renderAdminDashboard(c, "deleted")
}

func (a *App) renderAdminDashboard(c echo.Context, msg string) error {
	posts, err := a.Store.ListPosts(c.Request().Context(), true)
	if err != nil {
		return err
	}
	return Render(c, a.Views.AdminDashboard(posts, msg, CsrfToken(c)))
}
