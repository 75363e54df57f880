package web

import (
	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-yayasan"
)

func (s *Server) applicantDashboard(c *fiber.Ctx) error {
	admissions, err := SessionFrom(c).Client.Admissions().List(c.UserContext(), nil)
	if err != nil {
		return err
	}
	return s.render(c, "applicant/dashboard", fiber.Map{
		"admissions": admissions,
		"submitted":  c.Query("terkirim") == "1",
	})
}

func (s *Server) admissionFormShow(c *fiber.Ctx) error {
	return s.renderAdmissionForm(c, yayasan.Record{}, map[string]string{})
}

func (s *Server) admissionFormPost(c *fiber.Ctx) error {
	form := formRecord(c)

	if err := validateAdmission(form); err != nil {
		return s.renderAdmissionForm(c.Status(fiber.StatusUnprocessableEntity), form, fieldErrors(err))
	}

	if _, err := SessionFrom(c).Client.Admissions().Create(c.UserContext(), form); err != nil {
		if userFacing(err) {
			return s.renderAdmissionForm(c.Status(yayasan.StatusCode(err)), form, fieldErrors(err))
		}
		return err
	}

	return c.Redirect(applicantHome+"?terkirim=1", fiber.StatusSeeOther)
}

func (s *Server) renderAdmissionForm(c *fiber.Ctx, record yayasan.Record, errs map[string]string) error {
	waves, levels, err := admissionOptions(c.UserContext(), SessionFrom(c).Client)
	if err != nil {
		return err
	}
	return s.render(c, "applicant/form", fiber.Map{
		"record": record,
		"errors": errs,
		"waves":  waves,
		"levels": levels,
	})
}

func (s *Server) applicantProfile(c *fiber.Ctx) error {
	account, err := SessionFrom(c).Auth.RefreshProfile(c.UserContext())
	if err != nil {
		return err
	}
	return s.render(c, "applicant/profile", fiber.Map{"account": account})
}
