package yayasan

const (
	DefaultAdminLoginPath     = "/admin/login"
	DefaultApplicantLoginPath = "/login"
	DefaultHomePath           = "/"
)

// GuardRoutes are the redirect targets used by Guard
type GuardRoutes struct {
	AdminLogin     string
	ApplicantLogin string
	Home           string
}

// DefaultGuardRoutes returns the standard redirect targets
func DefaultGuardRoutes() GuardRoutes {
	return GuardRoutes{
		AdminLogin:     DefaultAdminLoginPath,
		ApplicantLogin: DefaultApplicantLoginPath,
		Home:           DefaultHomePath,
	}
}

// WithDefaults fills every empty route with its default
func (r GuardRoutes) WithDefaults() GuardRoutes {
	def := DefaultGuardRoutes()
	if r.AdminLogin == "" {
		r.AdminLogin = def.AdminLogin
	}
	if r.ApplicantLogin == "" {
		r.ApplicantLogin = def.ApplicantLogin
	}
	if r.Home == "" {
		r.Home = def.Home
	}
	return r
}

// LoginPathFor returns the login route for a required account type
func (r GuardRoutes) LoginPathFor(required AccountType) string {
	r = r.WithDefaults()
	if required == AccountAdmin {
		return r.AdminLogin
	}
	return r.ApplicantLogin
}

// GuardOutcome tells the caller what to do with a guarded subtree
type GuardOutcome int

const (
	GuardAllow GuardOutcome = iota
	GuardRedirectLogin
	GuardRedirectHome
)

func (o GuardOutcome) String() string {
	switch o {
	case GuardAllow:
		return "allow"
	case GuardRedirectLogin:
		return "redirect_login"
	case GuardRedirectHome:
		return "redirect_home"
	default:
		return "unknown"
	}
}

// Decision is the result of evaluating the guard
type Decision struct {
	Outcome  GuardOutcome
	Redirect string
}

// Allowed reports whether the guarded subtree may render
func (d Decision) Allowed() bool {
	return d.Outcome == GuardAllow
}

// Guard decides whether a protected subtree renders for state. It has no
// side effects and can be evaluated on every render.
//
// An anonymous principal goes to the login route matching required. An
// authenticated principal of the wrong type goes home, it is valid but
// not authorized for this subtree. An empty required type only asks for
// any authenticated principal.
func Guard(state SessionState, required AccountType, routes GuardRoutes) Decision {
	routes = routes.WithDefaults()

	if !state.IsAuthenticated {
		return Decision{
			Outcome:  GuardRedirectLogin,
			Redirect: routes.LoginPathFor(required),
		}
	}

	if required != AccountNone && state.UserType != required {
		return Decision{
			Outcome:  GuardRedirectHome,
			Redirect: routes.Home,
		}
	}

	return Decision{Outcome: GuardAllow}
}
