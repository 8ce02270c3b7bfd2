// Package remotemongo reads documents from a MongoDB data source linked to
// the app. Every operation is a service function call made through the
// session that created the client, so it runs with that user's permissions.
//
// A [Client] cannot be built directly; get it from the session once it is
// initialized.
package remotemongo
