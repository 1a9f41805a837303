package client

import (
	"github.com/ValentinKolb/dAX/lib/access/backend"
	"github.com/ValentinKolb/dAX/lib/access/concepts"
)

// --------------------------------------------------------------------------
// Transmitter Interface
// --------------------------------------------------------------------------

// RequestTransmitter is the seam between the coordinator and the wire layer.
// A Connected connection hands it fully-framed request envelopes in transmit
// order; the wire layer encodes and ships them to the backend described by
// info.
//
// Transmit must not block for longer than a local send buffer append. A
// returned error is interpreted as a transport signal: the connection asks
// the behavior to start a reconnect.
type RequestTransmitter interface {
	Transmit(info backend.Info, env *concepts.RequestEnvelope) error
}

// TransmitterFunc adapts a function to the RequestTransmitter interface.
type TransmitterFunc func(info backend.Info, env *concepts.RequestEnvelope) error

// Transmit implements RequestTransmitter.
func (f TransmitterFunc) Transmit(info backend.Info, env *concepts.RequestEnvelope) error {
	return f(info, env)
}
