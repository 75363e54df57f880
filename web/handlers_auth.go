package web

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-yayasan"
)

const (
	applicantHome = "/pendaftar"
	adminHome     = "/admin"
)

type loginFunc func(ctx context.Context, identifier, secret string) (*yayasan.Account, error)

// loginView carries what differs between the applicant and admin forms
type loginView struct {
	kind     yayasan.AccountType
	action   string
	title    string
	fallback string
}

func (s *Server) applicantLoginView() loginView {
	return loginView{
		kind:     yayasan.AccountApplicant,
		action:   s.routes.ApplicantLogin,
		title:    "Masuk Pendaftar",
		fallback: applicantHome,
	}
}

func (s *Server) adminLoginView() loginView {
	return loginView{
		kind:     yayasan.AccountAdmin,
		action:   s.routes.AdminLogin,
		title:    "Masuk Administrator",
		fallback: adminHome,
	}
}

func (s *Server) applicantLoginShow(c *fiber.Ctx) error {
	return s.loginShow(c, s.applicantLoginView())
}

func (s *Server) applicantLoginPost(c *fiber.Ctx) error {
	return s.loginPost(c, s.applicantLoginView(), SessionFrom(c).Auth.Signin)
}

func (s *Server) adminLoginShow(c *fiber.Ctx) error {
	return s.loginShow(c, s.adminLoginView())
}

func (s *Server) adminLoginPost(c *fiber.Ctx) error {
	return s.loginPost(c, s.adminLoginView(), SessionFrom(c).Auth.Login)
}

func (s *Server) loginShow(c *fiber.Ctx, view loginView) error {
	if SessionFrom(c).Auth.State().Is(view.kind) {
		return c.Redirect(view.fallback, fiber.StatusSeeOther)
	}
	return s.renderLogin(c, view, fiber.Map{
		"errors":     map[string]string{},
		"record":     LoginRequest{},
		"registered": c.Query("terdaftar") == "1",
	})
}

func (s *Server) loginPost(c *fiber.Ctx, view loginView, login loginFunc) error {
	payload := new(LoginRequest)
	if err := c.BodyParser(payload); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "unable to parse form")
	}

	if err := payload.Validate(); err != nil {
		return s.renderLogin(c.Status(fiber.StatusUnprocessableEntity), view, fiber.Map{
			"errors": fieldErrors(err),
			"record": payload,
		})
	}

	if _, err := login(c.UserContext(), payload.Identifier, payload.Password); err != nil {
		// the backend answers bad credentials with 401, which is not an
		// expired session here
		if yayasan.IsSessionExpired(err) || userFacing(err) {
			s.logger.Info("%s login rejected: %s", view.kind, err)
			return s.renderLogin(c.Status(fiber.StatusUnauthorized), view, fiber.Map{
				"errors": map[string]string{"authentication": "Email atau kata sandi salah"},
				"record": LoginRequest{Identifier: payload.Identifier},
			})
		}
		return err
	}

	if err := s.rotateSession(c); err != nil {
		return err
	}

	return c.Redirect(s.GetRedirectOrDefault(c, view.fallback), fiber.StatusSeeOther)
}

func (s *Server) renderLogin(c *fiber.Ctx, view loginView, data fiber.Map) error {
	data["title"] = view.title
	data["action"] = view.action
	data["is_applicant_form"] = view.kind == yayasan.AccountApplicant
	return s.render(c, "auth/login", data)
}

func (s *Server) registerShow(c *fiber.Ctx) error {
	return s.render(c, "auth/register", fiber.Map{
		"errors": map[string]string{},
		"record": yayasan.RegisterInput{},
	})
}

func (s *Server) registerPost(c *fiber.Ctx) error {
	payload := new(yayasan.RegisterInput)
	if err := c.BodyParser(payload); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "unable to parse form")
	}

	if err := SessionFrom(c).Auth.Register(c.UserContext(), *payload); err != nil {
		if !userFacing(err) {
			return err
		}
		s.logger.Info("registration rejected: %s", err)
		payload.Password = ""
		return s.render(c.Status(yayasan.StatusCode(err)), "auth/register", fiber.Map{
			"errors": fieldErrors(err),
			"record": payload,
		})
	}

	return c.Redirect(s.routes.ApplicantLogin+"?terdaftar=1", fiber.StatusSeeOther)
}

func (s *Server) logout(c *fiber.Ctx) error {
	if err := SessionFrom(c).Auth.Logout(); err != nil {
		s.logger.Error("logout failed: %s", err)
		return err
	}
	return c.Redirect(s.routes.Home, fiber.StatusSeeOther)
}
