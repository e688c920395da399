// Package handshake drives a Noise handshake across the wire envelope
// types, folding attestation-bound session bindings into the exchange.
//
// A handshake normally takes two messages (client request, server
// response) for the NN/NK/KK patterns this package supports. A third,
// optional "followup" message from the client carries the client's own
// session bindings, since the client only learns the final handshake
// hash after processing the server's response and so cannot sign
// anything earlier. The server's bindings, by contrast, ride on its
// single response message: the server's completing WriteMessage call
// already knows the final hash before that message is built.
package handshake
