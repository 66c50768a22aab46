package routes

import "quizportal/internal/session"

// LoginPath is where unauthorized navigation ends up.
const LoginPath = "/login"

// Authorize checks meta against the published session. It returns the path to
// redirect to, or "" when navigation may proceed. A session that is still
// loading counts as signed out.
func Authorize(meta Meta, st session.State) string {
	if meta.RequiresAdmin && !st.IsAdmin() {
		return LoginPath
	}
	if meta.RequiresAuth && !st.Authenticated() {
		return LoginPath
	}
	return ""
}

// Navigate runs the guard for a navigation to route and calls next exactly
// once, with the redirect target or "" to proceed.
func Navigate(route Route, st session.State, next func(redirect string)) {
	next(Authorize(route.Meta, st))
}
