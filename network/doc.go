/*
Package network is a small event-driven networking layer. A node is split into
a Handler, which opens listeners and connections and sends data, and a
Listener, which delivers every network and signal event to a single callback
in a single goroutine.

Because only one event is handled at a time, state touched exclusively from
the ForEach callback needs no locking. Events for one connection arrive in
the order the transport produced them: Accepted (or Connected) first, then
its messages, then Disconnected.

Three transports are supported:

* FramedTCP, which prefixes every message with its uvarint length so each Send
arrives as exactly one Message event on the other side.

* UDP, which is connectionless. A UDP listener never produces Accepted or
Disconnected events and every remote address shows up as its own Endpoint of
the listening resource.

* WS, which carries every message as one binary websocket message.
*/
package network
