package web

import (
	"fmt"
	"maps"
	"net/url"
	"slices"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-yayasan"
	"golang.org/x/sync/errgroup"
)

// adminResources maps the admin URL segment to the backend collection
var adminResources = map[string]struct {
	Title string
	Path  string
}{
	"berita":      {"Berita", yayasan.PathNews},
	"galeri":      {"Galeri", yayasan.PathGallery},
	"siswa":       {"Siswa", yayasan.PathStudents},
	"pegawai":     {"Pegawai", yayasan.PathStaff},
	"pendaftaran": {"Pendaftaran", yayasan.PathAdmissions},
	"kategori":    {"Kategori", yayasan.PathCategories},
	"gelombang":   {"Gelombang", yayasan.PathWaves},
	"jenjang":     {"Jenjang", yayasan.PathEducationLevel},
	"menu":        {"Menu", yayasan.PathMenus},
	"submenu":     {"Submenu", yayasan.PathSubmenus},
	"halaman":     {"Halaman", yayasan.PathPages},
	"pesan":       {"Pesan", yayasan.PathMessages},
}

// dashboardCounts are the collections summarized on the admin dashboard
var dashboardCounts = []string{"berita", "siswa", "pegawai", "pendaftaran", "pesan"}

func (s *Server) adminDashboard(c *fiber.Ctx) error {
	client := SessionFrom(c).Client
	counts := make([]int, len(dashboardCounts))

	g, ctx := errgroup.WithContext(c.UserContext())
	for i, name := range dashboardCounts {
		g.Go(func() error {
			items, err := client.Resource(adminResources[name].Path).List(ctx, nil)
			if err != nil {
				return err
			}
			counts[i] = len(items)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	cards := make([]fiber.Map, len(dashboardCounts))
	for i, name := range dashboardCounts {
		cards[i] = fiber.Map{
			"name":  name,
			"title": adminResources[name].Title,
			"count": counts[i],
		}
	}

	return s.render(c, "admin/dashboard", fiber.Map{"cards": cards})
}

func (s *Server) adminResource(c *fiber.Ctx) error {
	name := c.Params("resource")
	res, ok := adminResources[name]
	if !ok {
		return fiber.ErrNotFound
	}

	query := url.Values{}
	for k, v := range c.Queries() {
		query.Set(k, v)
	}

	items, err := SessionFrom(c).Client.Resource(res.Path).List(c.UserContext(), query)
	if err != nil {
		return err
	}

	columns, rows := tabulate(items)
	return s.render(c, "admin/resource", fiber.Map{
		"name":    name,
		"title":   res.Title,
		"columns": columns,
		"rows":    rows,
		"total":   len(items),
	})
}

// tabulate flattens records into sorted columns and string cells
func tabulate(items []yayasan.Record) ([]string, [][]string) {
	seen := map[string]struct{}{}
	for _, item := range items {
		for k := range item {
			seen[k] = struct{}{}
		}
	}
	columns := slices.Sorted(maps.Keys(seen))

	rows := make([][]string, 0, len(items))
	for _, item := range items {
		row := make([]string, len(columns))
		for i, col := range columns {
			if v, ok := item[col]; ok && v != nil {
				row[i] = fmt.Sprint(v)
			}
		}
		rows = append(rows, row)
	}
	return columns, rows
}

func (s *Server) adminProfileShow(c *fiber.Ctx) error {
	account, err := SessionFrom(c).Auth.RefreshProfile(c.UserContext())
	if err != nil {
		return err
	}
	return s.render(c, "admin/profile", fiber.Map{
		"account": account,
		"errors":  map[string]string{},
		"changed": c.Query("berhasil") == "1",
	})
}

func (s *Server) adminProfilePost(c *fiber.Ctx) error {
	sess := SessionFrom(c)

	payload := new(PasswordChangeRequest)
	if err := c.BodyParser(payload); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "unable to parse form")
	}

	fail := func(status int, err error) error {
		return s.render(c.Status(status), "admin/profile", fiber.Map{
			"account": sess.Auth.State().User,
			"errors":  fieldErrors(err),
		})
	}

	if err := payload.Validate(); err != nil {
		return fail(fiber.StatusUnprocessableEntity, err)
	}

	if err := sess.Auth.ChangePassword(c.UserContext(), payload.OldPassword, payload.NewPassword); err != nil {
		if userFacing(err) {
			return fail(yayasan.StatusCode(err), err)
		}
		return err
	}

	return c.Redirect(adminHome+"/profil?berhasil=1", fiber.StatusSeeOther)
}

func (s *Server) adminSiteConfig(c *fiber.Ctx) error {
	site, err := SessionFrom(c).Client.SiteConfig().Get(c.UserContext())
	if err != nil {
		return err
	}
	return s.render(c, "admin/config", fiber.Map{
		"fields":  configFields(site),
		"errors":  map[string]string{},
		"updated": c.Query("berhasil") == "1",
	})
}

func (s *Server) adminSiteConfigPost(c *fiber.Ctx) error {
	form := formRecord(c)
	if len(form) == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "no fields submitted")
	}

	if _, err := SessionFrom(c).Client.SiteConfig().Update(c.UserContext(), form); err != nil {
		if userFacing(err) {
			return s.render(c.Status(yayasan.StatusCode(err)), "admin/config", fiber.Map{
				"fields": configFields(form),
				"errors": fieldErrors(err),
			})
		}
		return err
	}

	return c.Redirect(adminHome+"/konfigurasi?berhasil=1", fiber.StatusSeeOther)
}

// configFields lists the document as name/value pairs in key order
func configFields(site yayasan.Record) []fiber.Map {
	fields := make([]fiber.Map, 0, len(site))
	for _, name := range slices.Sorted(maps.Keys(site)) {
		value := ""
		if v := site[name]; v != nil {
			value = fmt.Sprint(v)
		}
		fields = append(fields, fiber.Map{"name": name, "value": value})
	}
	return fields
}

// adminUpload relays a single file to the backend and answers with JSON,
// the admin editors call it from script
func (s *Server) adminUpload(c *fiber.Ctx) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "file is required")
	}

	f, err := fh.Open()
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "unable to read upload")
	}
	defer f.Close()

	res, err := SessionFrom(c).Client.Upload(c.UserContext(), "file", fh.Filename, f)
	if err != nil {
		return err
	}
	return c.JSON(res)
}
