// Package portal speaks the AKTU exam portal's WebForms dialect: it
// owns the authenticated HTTP session, the hidden-field state that
// every postback must echo back, and the extraction of that state from
// both full HTML pages and partial-postback delta payloads.
package portal
