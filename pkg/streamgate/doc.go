// Package streamgate implements a time-limited signed-URL gateway and
// streaming reverse proxy for objects held in a remote object store.
//
// An operator mints a "master" link for a stored object. Visiting the master
// link redirects to a short-lived signed link carrying expiry and sig query
// parameters. Requests against the signed link are validated (expiry first,
// then a constant-time signature check) and, if valid, the object is streamed
// back from the resolved origin with headers rewritten for correct playback
// and download behavior: CORS, Accept-Ranges, Content-Disposition, and a
// content-type fixup for object stores that default to octet-stream.
//
// The scheme is deliberately stateless: a signed link is verifiable from its
// own parameters plus the shared secret, so mint and redeem may be handled by
// different instances with no shared session store.
package streamgate
