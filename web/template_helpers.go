package web

import (
	"maps"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-yayasan"
	"github.com/goliatone/go-yayasan/middleware/csrf"
)

var TemplateUserKey = "current_user"

// TemplateHelpers returns the bindings every view receives for state.
//
// In templates, you can then use:
//
//	{% if is_admin %}
//	{{ current_user.Nama }}
//	<input type="hidden" name="{{ csrf_field }}" value="{{ csrf_token }}">
func TemplateHelpers(state yayasan.SessionState) fiber.Map {
	return fiber.Map{
		"session":          state,
		TemplateUserKey:    state.User,
		"is_authenticated": state.IsAuthenticated,
		"is_admin":         state.Is(yayasan.AccountAdmin),
		"is_applicant":     state.Is(yayasan.AccountApplicant),
		"csrf_field":       csrf.DefaultFormFieldName,
	}
}

// templateHelpersWithContext adds the request scoped values: the csrf
// token, the current path and the guard routes
func (s *Server) templateHelpersWithContext(c *fiber.Ctx) fiber.Map {
	state := yayasan.AnonymousState()
	if sess := SessionFrom(c); sess != nil {
		state = sess.Auth.State()
	}

	helpers := TemplateHelpers(state)
	helpers["csrf_token"] = csrf.Token(c)
	helpers["current_path"] = c.Path()
	helpers["admin_login_path"] = s.routes.AdminLogin
	helpers["applicant_login_path"] = s.routes.ApplicantLogin
	return helpers
}

// withTemplateHelpers merges data over the helpers, handler values win
func (s *Server) withTemplateHelpers(c *fiber.Ctx, data fiber.Map) fiber.Map {
	helpers := s.templateHelpersWithContext(c)
	maps.Copy(helpers, data)
	return helpers
}
