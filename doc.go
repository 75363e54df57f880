// Package yayasan provides the client side session core for the Yayasan
// school website: a persisted token store, an API client with bearer
// injection and session expiry detection, an auth store that tracks who is
// logged in and as what, and a route guard.
//
// Account types:
//   - Two disjoint principal kinds share one token slot: "admin" (staff,
//     established with Login) and "applicant" (prospective students,
//     established with Signin). A successful login of one kind replaces any
//     session of the other kind.
//
// Persisted state:
//   - The token, the serialized account record and the account type live in
//     a TokenStore under the keys "token", "user" and "userType". They are
//     written and cleared together. The account record is validated when it
//     is read back; a record that does not decode is treated as corruption
//     and the session falls back to anonymous.
//
// Session expiry:
//   - Any 401 response clears the stored session and surfaces
//     ErrSessionExpired. The transport never navigates; a single top level
//     SessionExpiryHandler converts that error into a redirect to the login
//     route.
package yayasan
