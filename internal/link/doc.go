// Package link holds the two protocol engines of the oven serial link.
//
// [Host] runs on the supervisory controller: it issues SET/UPD/TOG/GET/PING/RST,
// tracks one acknowledgment flag per command family, runs the PING/PONG sync
// handshake and keeps a shadow of the last STATUS. [Client] runs on the actuator
// unit: it applies commands through an injected [OutputApplier], answers with
// ACK frames and fills STATUS through an injected [StatusFiller].
//
// Both engines are poll-driven and never block on the peer. Bytes are pushed in
// with Feed; replies to commands show up as flags on a later State call. Neither
// engine is goroutine-safe: each must have a single owner that serializes calls.
//
// Error policy on the Host: junk and undecodable lines are always counted, but
// only set the sticky CommError flag once the link has synced, so power-up noise
// on the UART never trips it. An explicit C;ERR;SET always sets it.
package link
