package main

// PoolClient The surface the rest of the miner depends on. Both the stream
// client and the getwork poll client implement it.
type PoolClient interface {
	Connect()
	Disconnect()
	IsConnected() bool
	IsPendingState() bool

	SetEndpoint(endpoint *PoolEndpoint)

	SubmitSolution(solution *Solution)
	SubmitHashrate(rate string)

	OnConnected(handler func())
	OnDisconnected(handler func())
	OnWorkReceived(handler func(work *Work))
	OnSolutionAccepted(handler func(stale bool))
	OnSolutionRejected(handler func(stale bool))
}

// poolClientBase Endpoint and callback registration shared by both clients.
// Handlers are installed before Connect and must not raise; errors inside
// them are the miner's problem, not the client's.
type poolClientBase struct {
	endpoint *PoolEndpoint

	onConnected        func()
	onDisconnected     func()
	onWorkReceived     func(work *Work)
	onSolutionAccepted func(stale bool)
	onSolutionRejected func(stale bool)
}

func (base *poolClientBase) SetEndpoint(endpoint *PoolEndpoint) {
	base.endpoint = endpoint
}

func (base *poolClientBase) OnConnected(handler func()) {
	base.onConnected = handler
}

func (base *poolClientBase) OnDisconnected(handler func()) {
	base.onDisconnected = handler
}

func (base *poolClientBase) OnWorkReceived(handler func(work *Work)) {
	base.onWorkReceived = handler
}

func (base *poolClientBase) OnSolutionAccepted(handler func(stale bool)) {
	base.onSolutionAccepted = handler
}

func (base *poolClientBase) OnSolutionRejected(handler func(stale bool)) {
	base.onSolutionRejected = handler
}

func (base *poolClientBase) fireConnected() {
	if base.onConnected != nil {
		base.onConnected()
	}
}

func (base *poolClientBase) fireDisconnected() {
	if base.onDisconnected != nil {
		base.onDisconnected()
	}
}

func (base *poolClientBase) fireWorkReceived(work *Work) {
	if base.onWorkReceived != nil {
		base.onWorkReceived(work)
	}
}

func (base *poolClientBase) fireSolutionAccepted(stale bool) {
	if base.onSolutionAccepted != nil {
		base.onSolutionAccepted(stale)
	}
}

func (base *poolClientBase) fireSolutionRejected(stale bool) {
	if base.onSolutionRejected != nil {
		base.onSolutionRejected(stale)
	}
}
