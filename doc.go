// Package auth provides the authentication and project authorization core of
// the task tracker: JWT issuance, refresh token rotation, project memberships
// and the permission table that gates every project and task operation.
//
// Sign in:
//   - Auther registers users (the first account ever is ADMIN, every later one
//     is USER), logs them in and exchanges refresh tokens for new access
//     tokens. Unknown users and wrong passwords fail the same way.
//   - RefreshTokenManager keeps at most one refresh token per user. Only the
//     SHA-256 digest of the token is stored and expired tokens are deleted
//     when presented.
//   - Access tokens are HS256 JWTs. Options.PreviousSigningKeys keeps tokens
//     signed with a retired key valid until they expire.
//
// Projects:
//   - MembershipRegistry stores (project, user, role) rows. OWNER is granted
//     only when a project is created and can never be changed or removed.
//   - PermissionEvaluator answers the decision table for project and task
//     operations. Project creators keep view/edit/delete rights without a
//     membership row.
//   - ProjectGuard and ProjectMembers run the permission checks in front of the
//     store and report denials as ErrForbidden, distinct from ErrNotFound.
//
// Activity sinks:
//   - ActivitySink receives register, login, refresh, membership and denial
//     events. Sinks run best-effort (errors are logged) so metrics and audit
//     logs never block authentication.
package auth
