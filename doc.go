// The [stitch] package is a client for a backend-as-a-service app: it logs a
// user in with one of several credential types, calls the app's server-side
// functions, and reads documents from the app's linked MongoDB data source.
//
// # Sessions
//
// A [Client] is one session. Create it with [New] and call
// [Client.Initialize] once before anything else, or use [Connect] which does
// both. Every other operation fails with a [*NotInitializedError] until
// initialization succeeds.
//
// [Client.Login] takes a [credential.Credential]; [Client.Logout] always
// leaves the client logged out locally, even if the server could not be
// reached. The logged-in user is persisted to the configured [store.Store]
// and restored by the next Initialize.
//
// # Functions and documents
//
// Use [CallFunction] to call a server-side function and decode its result,
// and [Client.Mongo] to get the data client:
//
//	mongo, err := client.Mongo()
//	docs, err := mongo.Database("HR").Collection("employees").Find(ctx, nil)
//
// Nothing is retried. Timeouts come from the HTTP client in [Config].
//
// [credential.Credential]: https://pkg.go.dev/github.com/stitchkit/stitch.go/pkg/credential#Credential
// [store.Store]: https://pkg.go.dev/github.com/stitchkit/stitch.go/pkg/store#Store
package stitch
