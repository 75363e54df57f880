package web

import (
	"context"
	"net/url"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-yayasan"
	"golang.org/x/sync/errgroup"
)

const homeNewsLimit = "6"

func (s *Server) home(c *fiber.Ctx) error {
	sess := SessionFrom(c)

	var news, gallery []yayasan.Record
	var site yayasan.Record

	g, ctx := errgroup.WithContext(c.UserContext())
	g.Go(func() (err error) {
		news, err = sess.Client.News().List(ctx, url.Values{"limit": {homeNewsLimit}})
		return err
	})
	g.Go(func() (err error) {
		gallery, err = sess.Client.Gallery().List(ctx, url.Values{"limit": {homeNewsLimit}})
		return err
	})
	g.Go(func() (err error) {
		site, err = sess.Client.SiteConfig().Get(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}

	return s.render(c, "home", fiber.Map{
		"news":    news,
		"gallery": gallery,
		"site":    site,
	})
}

func (s *Server) newsIndex(c *fiber.Ctx) error {
	query := url.Values{}
	for _, key := range []string{"page", "kategori", "q"} {
		if v := c.Query(key); v != "" {
			query.Set(key, v)
		}
	}

	news, err := SessionFrom(c).Client.News().List(c.UserContext(), query)
	if err != nil {
		return err
	}

	return s.render(c, "news/index", fiber.Map{
		"news":  news,
		"query": query.Encode(),
	})
}

func (s *Server) newsShow(c *fiber.Ctx) error {
	item, err := SessionFrom(c).Client.News().Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return s.render(c, "news/show", fiber.Map{"item": item})
}

func (s *Server) gallery(c *fiber.Ctx) error {
	items, err := SessionFrom(c).Client.Gallery().List(c.UserContext(), nil)
	if err != nil {
		return err
	}
	return s.render(c, "gallery", fiber.Map{"items": items})
}

func (s *Server) profilePage(c *fiber.Ctx) error {
	page, err := SessionFrom(c).Client.Pages().Get(c.UserContext(), "profil")
	if err != nil {
		return err
	}
	return s.render(c, "page", fiber.Map{"page": page})
}

func (s *Server) contactShow(c *fiber.Ctx) error {
	return s.render(c, "contact", fiber.Map{
		"errors": map[string]string{},
		"record": ContactRequest{},
		"sent":   c.Query("terkirim") == "1",
	})
}

func (s *Server) contactCreate(c *fiber.Ctx) error {
	payload := new(ContactRequest)
	if err := c.BodyParser(payload); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "unable to parse form")
	}

	if err := payload.Validate(); err != nil {
		return s.render(c.Status(fiber.StatusUnprocessableEntity), "contact", fiber.Map{
			"errors": fieldErrors(err),
			"record": payload,
		})
	}

	_, err := SessionFrom(c).Client.Messages().Create(c.UserContext(), payload)
	if err != nil {
		if userFacing(err) {
			return s.render(c.Status(yayasan.StatusCode(err)), "contact", fiber.Map{
				"errors": fieldErrors(err),
				"record": payload,
			})
		}
		return err
	}

	return c.Redirect("/kontak?terkirim=1", fiber.StatusSeeOther)
}

func (s *Server) admissionInfo(c *fiber.Ctx) error {
	waves, levels, err := admissionOptions(c.UserContext(), SessionFrom(c).Client)
	if err != nil {
		return err
	}
	return s.render(c, "admission", fiber.Map{
		"waves":  waves,
		"levels": levels,
	})
}

// admissionOptions loads the open waves and education levels together
func admissionOptions(ctx context.Context, client *yayasan.APIClient) (waves, levels []yayasan.Record, err error) {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		waves, err = client.Waves().List(gctx, nil)
		return err
	})
	g.Go(func() (err error) {
		levels, err = client.EducationLevels().List(gctx, nil)
		return err
	})
	err = g.Wait()
	return waves, levels, err
}
