// Package wire owns the persistent websocket connection to the talent
// platform: dialing, the auth handshake, bounded reconnection, and
// dispatching inbound events to subscribers.
//
// The connection is effectively single-writer: Emit serializes all
// outbound frames behind a write mutex, and a single read loop consumes
// inbound frames and invokes subscriber callbacks in receive order.
package wire
