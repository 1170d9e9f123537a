package main

type EventConnect struct{}

type EventDisconnect struct{}

type EventExit struct{}

type EventResolved struct {
	Endpoints []string
	Err       error
}

// EventConnectDone Result of one asynchronous dial attempt. Seq ties the
// event to the dial that produced it so stale completions are discarded.
type EventConnectDone struct {
	Seq  uint64
	Conn *Connection
	Err  error
}

type EventRecvJSONRPC struct {
	Conn      *Connection
	RPCData   *JSONRPCLine
	JSONBytes []byte
}

type EventConnBroken struct {
	Conn *Connection
	Err  error
}

type EventSSLShutdownCompleted struct {
	Conn *Connection
}

type EventSubmitSolution struct {
	Solution *Solution
}

// Timer expiries carry the generation of the arming so an expiry that lost
// the race with a cancel or re-arm is discarded by the loop.
type EventConnectTimeout struct {
	Gen uint64
}

type EventWorkTimeout struct {
	Gen uint64
}

type EventResponseTimeout struct {
	Gen uint64
}
