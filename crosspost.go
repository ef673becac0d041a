// Package crosspost turns one canonical article into publish-ready payloads
// for many content targets. It resolves and re-hosts embedded images and
// serializes the article tree into Markdown or restricted HTML according to
// each target's declared profile.
//
// This package contains domain types and interfaces following Ben Johnson's
// Standard Package Layout. Implementations live in subdirectories named
// after their primary dependency (e.g., sqlite/, rod/, goquery/) and
// orchestration lives in packages named after their role (e.g., upload/).
package crosspost
