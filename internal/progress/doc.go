// Package progress implements the in-process publish/subscribe bus that fans
// campaign status text out to streaming clients, keyed by session id.
//
// The bus keeps no replay buffer: a message published with no subscribers is
// dropped, and new subscribers only observe future messages. Each subscriber
// gets its own delivery goroutine so a slow or panicking listener can never
// block or fail the publisher, while messages still arrive in publish order.
//
// Construct a Bus with NewBus and hand it to both the HTTP layer and the
// campaign runner; there is deliberately no package-level instance.
package progress
