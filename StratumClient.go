package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/bits-and-blooms/bitset"
	"github.com/golang/glog"
)

// clientState Event-loop-owned connection lifecycle state
type clientState uint8

const (
	stateDisconnected clientState = iota
	stateResolving
	stateConnecting
	stateSubscribing
	stateAuthorizing
	stateActive
	stateDisconnecting
)

// StratumClient Maintains one stream session with a pool. All protocol logic
// runs on a single event-loop goroutine; Connect, Disconnect and the submit
// calls may be invoked from any goroutine and only enqueue events. The
// status flags are atomics solely for outside observers.
type StratumClient struct {
	poolClientBase

	id string // Connection identifier for printing logs

	workTimeout     Seconds
	responseTimeout Seconds
	proxyURL        string

	connecting      atomic.Bool
	connected       atomic.Bool
	subscribed      atomic.Bool
	authorized      atomic.Bool
	disconnecting   atomic.Bool
	responsePending atomic.Bool

	state      clientState
	endpoints  []string // FIFO queue of resolved endpoints
	activeAddr string

	connection *Connection
	dialSeq    uint64
	dialCancel context.CancelFunc

	conntimer     *time.Timer
	worktimer     *time.Timer
	responsetimer *time.Timer

	conntimerGen     uint64
	worktimerGen     uint64
	responsetimerGen uint64

	extraNonce        string
	extraNonceHexSize int

	nextWorkDifficulty float64
	current            *Work
	worker             string // worker suffix of the configured user

	pending *bitset.BitSet // in-flight request ids

	eventLoopRunning bool
	eventChannel     chan interface{}
}

// NewStratumClient Create a client and start its event loop. The loop runs
// until Stop.
func NewStratumClient(workTimeout, responseTimeout Seconds, proxyURL string) (client *StratumClient) {
	client = new(StratumClient)
	client.workTimeout = workTimeout
	client.responseTimeout = responseTimeout
	client.proxyURL = proxyURL
	client.state = stateDisconnected
	client.pending = bitset.New(16)
	client.eventChannel = make(chan interface{}, ClientEventChannelCache)

	go client.handleEvent()
	return
}

func (client *StratumClient) SendEvent(event interface{}) {
	client.eventChannel <- event
}

// Connect Begin a connection cycle. A no-op while one is already in flight.
func (client *StratumClient) Connect() {
	// Prevent unnecessary and potentially dangerous recursion
	if client.connecting.Load() {
		return
	}
	client.connecting.Store(true)

	client.connected.Store(false)
	client.subscribed.Store(false)
	client.authorized.Store(false)

	client.SendEvent(EventConnect{})
}

// Disconnect Tear the session down. Idempotent.
func (client *StratumClient) Disconnect() {
	client.SendEvent(EventDisconnect{})
}

// Stop End the event loop. The client is unusable afterwards.
func (client *StratumClient) Stop() {
	client.SendEvent(EventExit{})
}

func (client *StratumClient) IsConnected() bool {
	return client.connected.Load() && !client.disconnecting.Load()
}

func (client *StratumClient) IsPendingState() bool {
	return client.connecting.Load() || client.disconnecting.Load()
}

func (client *StratumClient) SubmitSolution(solution *Solution) {
	client.SendEvent(EventSubmitSolution{solution})
}

// SubmitHashrate There is no stratum method to submit the hashrate; the
// getwork client carries the rpc variant. Hook kept for interface parity.
func (client *StratumClient) SubmitHashrate(rate string) {
}

func (client *StratumClient) handleEvent() {
	client.eventLoopRunning = true
	for client.eventLoopRunning {
		event := <-client.eventChannel

		switch e := event.(type) {
		case EventConnect:
			client.startConnect()
		case EventResolved:
			client.resolved(e)
		case EventConnectDone:
			client.connectDone(e)
		case EventRecvJSONRPC:
			client.recvJSONRPC(e)
		case EventConnBroken:
			client.connBroken(e)
		case EventSubmitSolution:
			client.submitSolution(e.Solution)
		case EventConnectTimeout:
			client.checkConnectTimeout(e.Gen)
		case EventWorkTimeout:
			client.workTimeoutExpired(e.Gen)
		case EventResponseTimeout:
			client.responseTimeoutExpired(e.Gen)
		case EventDisconnect:
			client.doDisconnect()
		case EventSSLShutdownCompleted:
			client.sslShutdownCompleted(e)
		case EventExit:
			client.doDisconnect()
			client.eventLoopRunning = false
		default:
			glog.Error(client.id, "unknown event: ", e)
		}
	}
}

func (client *StratumClient) startConnect() {
	endpoint := client.endpoint
	if endpoint == nil {
		glog.Error("no pool endpoint configured")
		client.connecting.Store(false)
		return
	}
	if client.state == stateDisconnecting {
		client.connecting.Store(false)
		return
	}
	if client.connection != nil {
		client.connection.Close()
		client.connection = nil
	}

	client.id = fmt.Sprintf("pool (%s:%d) ", endpoint.Host, endpoint.Port)
	client.worker = endpoint.WorkerSuffix()
	client.state = stateResolving

	// Resolving on every connect is deliberate: most load balancers give
	// the IPs in different order on each lookup.
	host, port := endpoint.Host, endpoint.Port
	go func() {
		endpoints, err := resolveEndpoints(host, port)
		client.SendEvent(EventResolved{endpoints, err})
	}()
}

func (client *StratumClient) resolved(e EventResolved) {
	if client.state != stateResolving {
		return
	}
	if e.Err != nil {
		glog.Warning(client.id, "could not resolve host ", client.endpoint.Host, ": ", e.Err.Error())
		client.connectCycleFailed()
		return
	}
	client.endpoints = e.Endpoints
	client.nextEndpoint()
}

// nextEndpoint Pop the endpoint queue and dial. Queue exhaustion is the only
// place a failed connect cycle reports a disconnect.
func (client *StratumClient) nextEndpoint() {
	if len(client.endpoints) == 0 {
		glog.Warning(client.id, "no more IP addresses to try for host: ", client.endpoint.Host)
		client.connectCycleFailed()
		return
	}

	client.activeAddr = client.endpoints[0]
	client.endpoints = client.endpoints[1:]
	client.state = stateConnecting

	glog.Info(client.id, "trying ", client.activeAddr, " ...")
	client.armConnTimer()

	client.dialSeq++
	seq := client.dialSeq
	ctx, cancel := context.WithCancel(context.Background())
	client.dialCancel = cancel

	addr, pool, proxyURL := client.activeAddr, client.endpoint, client.proxyURL
	go func() {
		conn, err := dialPool(ctx, addr, pool, proxyURL)
		client.SendEvent(EventConnectDone{seq, conn, err})
	}()
}

// connectCycleFailed A connect cycle that never produced a connection:
// resolve failure or endpoint queue exhaustion. Exactly one onDisconnected
// fires and no timer stays armed.
func (client *StratumClient) connectCycleFailed() {
	client.stopTimer(&client.conntimer)
	client.stopTimer(&client.worktimer)
	client.stopTimer(&client.responsetimer)
	client.connecting.Store(false)
	client.state = stateDisconnected
	client.fireDisconnected()
}

func (client *StratumClient) connectDone(e EventConnectDone) {
	if e.Seq != client.dialSeq || client.state != stateConnecting {
		// A dial that lost the race with its timeout or a disconnect
		if e.Conn != nil {
			e.Conn.Close()
		}
		return
	}

	client.stopTimer(&client.conntimer)
	client.dialCancel = nil

	if e.Err != nil {
		glog.Warning(client.id, "error ", client.activeAddr, " [", e.Err.Error(), "]")
		if client.endpoint.SecLevel != SecLevelNone && isCertVerifyError(e.Err) {
			logCertVerifyGuidance()
		}
		// Do not trigger a full disconnection; let the loop continue with
		// another IP (if any). Disconnection is triggered on queue drain.
		client.nextEndpoint()
		return
	}

	// Here is where we're properly connected
	client.connecting.Store(false)
	client.connected.Store(true)
	client.connection = e.Conn
	client.pending.ClearAll()

	client.fireConnected()
	client.resetWorkTimeout()

	go client.readLoop(e.Conn)

	client.state = stateSubscribing
	client.sendSubscribe()
}

func (client *StratumClient) sendSubscribe() {
	request := &JSONRPCRequest{ID: RequestIDSubscribe, Method: "mining.subscribe"}
	switch client.endpoint.Protocol {
	case ProtocolStratum, ProtocolEthereumStratum:
		request.SetParams(ClientUserAgent, StratumProtocolVersion)
	case ProtocolETHProxy:
		request.SetParams()
	}
	client.markPending(RequestIDSubscribe)
	client.writeRequest(request, 1)
}

func (client *StratumClient) readLoop(conn *Connection) {
	for {
		line, err := conn.ReadLine()
		if err != nil {
			client.SendEvent(EventConnBroken{conn, err})
			return
		}
		if len(line) == 0 {
			continue
		}
		if glog.V(10) {
			glog.Info(client.id, "recv: ", string(line))
		}

		rpcData, err := NewJSONRPCLine(line)
		if err != nil {
			rpcData = nil
			glog.Warning(client.id, "got invalid json message: ", err.Error(), "; ", string(line))
		}

		// The next read is issued as soon as the event is queued so reads
		// never stall behind callback work.
		client.SendEvent(EventRecvJSONRPC{conn, rpcData, line})
	}
}

func (client *StratumClient) connBroken(e EventConnBroken) {
	if e.Conn != client.connection || client.state == stateDisconnecting {
		return
	}
	if !client.connected.Load() {
		return
	}
	if errors.Is(e.Err, io.EOF) {
		glog.Info(client.id, "connection remotely closed by ", client.endpoint.Host)
	} else {
		glog.Warning(client.id, "socket read failed: ", e.Err.Error())
	}
	client.doDisconnect()
}

func (client *StratumClient) recvJSONRPC(e EventRecvJSONRPC) {
	if e.Conn != client.connection {
		return
	}
	if e.RPCData == nil {
		// Malformed JSON from the pool
		client.invalidMessage()
		return
	}
	client.processResponse(e.RPCData)
}

func (client *StratumClient) invalidMessage() {
	glog.Warning(client.id, "pool sent an invalid jsonrpc message, ask pool devs to honor http://www.jsonrpc.org/ specifications")
	glog.Warning(client.id, "disconnecting ...")
	client.doDisconnect()
}

func (client *StratumClient) processResponse(rpcData *JSONRPCLine) {
	rpcVer := rpcData.RPCVersion()
	id := rpcData.IDUint()
	isSuccess := rpcData.IsSuccess()
	errReason := ""
	if !isSuccess {
		errReason = rpcData.ErrorReason()
	}
	method := rpcData.Method
	isNotification := id == 0 || method != ""

	// Notifications of new jobs are like responses to get_work requests
	if isNotification && method == "" && client.endpoint.Protocol == ProtocolETHProxy {
		if _, ok := rpcData.ResultArray(); ok {
			method = "mining.notify"
		}
	}

	// Minimal sanity checks: rpc2 messages must carry jsonrpc "2.0" and
	// notifications must carry a non-empty params or result member.
	if (rpcVer == 2 && rpcData.JSONRPC != "2.0") ||
		(isNotification && len(rpcData.Params) == 0 && rpcData.Result == nil) {
		client.invalidMessage()
		return
	}

	if !isNotification {
		// Correlate to one of our outstanding requests. Ids we never sent
		// are discarded, except the special ids: 9 is reserved for hashrate
		// replies and 999 is the error id some pools substitute.
		if id != RequestIDHashrate && id != UnknownErrorID && !client.pending.Test(uint(id)) {
			glog.Info(client.id, "got response for unknown message id [", id, "] discarding ...")
			return
		}

		switch id {
		case RequestIDSubscribe:
			client.handleSubscribeResponse(rpcData, isSuccess, errReason)

		case RequestIDExtranonceSubscribe:
			// With mining.extranonce.subscribe in place the client just has
			// to handle extranonce changes; the reply itself carries nothing.
			client.pending.Clear(uint(id))

		case RequestIDAuthorize:
			client.pending.Clear(uint(id))
			if isSuccess {
				if result, ok := rpcData.Result.(bool); ok {
					isSuccess = result
				}
			}
			client.authorized.Store(isSuccess)
			if !isSuccess {
				glog.Warning(client.id, "worker not authorized ", client.endpoint.User, " ", errReason)
				client.doDisconnect()
				return
			}
			glog.Info(client.id, "authorized worker ", client.endpoint.User)
			client.state = stateActive

		case RequestIDSubmit:
			client.pending.Clear(uint(id))
			if isSuccess {
				if result, ok := rpcData.Result.(bool); ok {
					isSuccess = result
				}
			}
			client.stopTimer(&client.responsetimer)
			client.responsePending.Store(false)
			if isSuccess {
				client.fireSolutionAccepted(true)
			} else {
				if errReason != "" {
					glog.Warning(client.id, "reject reason: ", errReason)
				}
				client.fireSolutionRejected(false)
			}

		case RequestIDGetBlockTemplate:
			client.pending.Clear(uint(id))
			// First get_work response in ETHPROXY mode doubles as the first
			// job notification.
			if client.endpoint.Protocol == ProtocolETHProxy {
				if _, ok := rpcData.ResultArray(); ok {
					client.handleNotification("mining.notify", rpcData, rpcVer, id)
				}
			}

		case RequestIDHashrate:
			client.pending.Clear(uint(id))
			// Hashrate submit is out of stratum spec; failure is not fatal
			if !isSuccess {
				if errReason == "" {
					errReason = "Unspecified error"
				}
				glog.Warning(client.id, "submit hashrate failed: ", errReason)
			}

		case UnknownErrorID:
			// None of the outgoing requests carries this id, but ethermine.org
			// replies with it on subscribe/authorize errors. Map it back via
			// the subscribed/authorized states.
			if !isSuccess {
				if !client.subscribed.Load() {
					glog.Warning(client.id, "subscription failed: ", errReason)
					client.doDisconnect()
					return
				}
				if !client.authorized.Load() {
					glog.Warning(client.id, "worker not authorized: ", errReason)
					client.doDisconnect()
					return
				}
			}
		}
		return
	}

	client.handleNotification(method, rpcData, rpcVer, id)
}

func (client *StratumClient) handleSubscribeResponse(rpcData *JSONRPCLine, isSuccess bool, errReason string) {
	client.pending.Clear(uint(RequestIDSubscribe))
	client.subscribed.Store(isSuccess)

	switch client.endpoint.Protocol {
	case ProtocolStratum:
		if !isSuccess {
			glog.Warning(client.id, "could not subscribe to stratum server: ", errReason)
			client.doDisconnect()
			return
		}
		glog.Info(client.id, "subscribed to stratum server")
		client.state = stateAuthorizing
		client.sendAuthorize(2)

	case ProtocolETHProxy:
		if !isSuccess {
			glog.Warning(client.id, "could not login to eth-proxy server: ", errReason)
			client.doDisconnect()
			return
		}
		glog.Info(client.id, "logged in to eth-proxy server")
		client.authorized.Store(true)
		client.state = stateActive
		request := &JSONRPCRequest{ID: RequestIDGetBlockTemplate, Method: "getblocktemplate"}
		request.SetParams()
		client.markPending(RequestIDGetBlockTemplate)
		client.writeRequest(request, 1)

	case ProtocolEthereumStratum:
		if !isSuccess {
			glog.Warning(client.id, "could not subscribe to stratum server: ", errReason)
			client.doDisconnect()
			return
		}
		glog.Info(client.id, "subscribed to stratum server")
		client.nextWorkDifficulty = 1
		if result, ok := rpcData.ResultArray(); ok && len(result) >= 2 {
			if enonce, ok := result[1].(string); ok {
				client.processExtranonce(enonce)
			}
		}
		// Notify we're ready for extranonce changes on the fly; the reply
		// carries no logic.
		extranonce := &JSONRPCRequest{ID: RequestIDExtranonceSubscribe, Method: "mining.extranonce.subscribe"}
		extranonce.SetParams()
		client.markPending(RequestIDExtranonceSubscribe)
		client.writeRequest(extranonce, 1)

		client.state = stateAuthorizing
		client.sendAuthorize(1)
	}
}

func (client *StratumClient) sendAuthorize(version int) {
	request := &JSONRPCRequest{ID: RequestIDAuthorize, Method: "mining.authorize"}
	request.SetParams(client.endpoint.User+client.endpoint.Path, client.endpoint.Pass)
	client.markPending(RequestIDAuthorize)
	client.writeRequest(request, version)
}

func (client *StratumClient) handleNotification(method string, rpcData *JSONRPCLine, rpcVer int, id uint64) {
	switch method {
	case "mining.notify":
		params := rpcData.Params
		if len(params) == 0 {
			if result, ok := rpcData.ResultArray(); ok {
				params = result
			}
		}
		if len(params) < 4 {
			return
		}
		header, _ := params[2].(string)
		seed, _ := params[3].(string)
		if header == "" || seed == "" {
			return
		}
		client.resetWorkTimeout()
		work := NewWork(params, client.extraNonce, client.nextWorkDifficulty, true)
		work.ExSizeBits = client.extraNonceHexSize * 4
		client.current = work
		client.fireWorkReceived(work)

	case "mining.set_difficulty":
		if len(rpcData.Params) >= 1 {
			if difficulty, ok := rpcData.Params[0].(float64); ok {
				client.nextWorkDifficulty = floorDifficulty(difficulty)
				glog.Info(client.id, "difficulty set to ", client.nextWorkDifficulty)
			}
		}

	case "mining.set_extranonce":
		if len(rpcData.Params) >= 1 {
			if enonce, ok := rpcData.Params[0].(string); ok {
				client.processExtranonce(enonce)
			}
		}

	case "client.get_version":
		response := &JSONRPCResponse{ID: strconv.FormatUint(id, 10)}
		response.SetResult(ProjectVersion)
		client.writeResponse(response, rpcVer)

	default:
		glog.Warning(client.id, "got unknown method [", method, "] from pool, discarding ...")
	}
}

func (client *StratumClient) processExtranonce(enonce string) {
	glog.Info(client.id, "extranonce set to ", enonce)
	client.extraNonce, client.extraNonceHexSize = padExtraNonce(enonce)
}

func (client *StratumClient) submitSolution(solution *Solution) {
	client.stopTimer(&client.responsetimer)
	client.responsetimerGen++
	gen := client.responsetimerGen
	client.responsetimer = time.AfterFunc(client.responseTimeout.Get(), func() {
		client.SendEvent(EventResponseTimeout{gen})
	})

	request := &JSONRPCRequest{ID: RequestIDSubmit, Method: "mining.submit"}
	nonceStr := strconv.FormatUint(solution.Nonce, 10)

	version := 1
	switch client.endpoint.Protocol {
	case ProtocolStratum:
		version = 2
		request.SetParams(client.endpoint.User, solution.JobName, solution.ExtraNonce,
			solution.Time, nonceStr, solution.HashMixHex())
		request.Worker = client.worker
	case ProtocolETHProxy:
		request.Method = "submitblock"
		request.SetParams(solution.JobName, solution.ExtraNonce,
			solution.Time, nonceStr, solution.HashMixHex())
		request.Worker = client.worker
	case ProtocolEthereumStratum:
		request.SetParams(client.endpoint.User, solution.JobName, solution.ExtraNonce,
			solution.Time, nonceStr, solution.HashMixHex())
	}

	client.markPending(RequestIDSubmit)
	client.writeRequest(request, version)
	client.responsePending.Store(true)
}

func (client *StratumClient) writeRequest(request *JSONRPCRequest, version int) {
	if client.connection == nil || !client.connected.Load() {
		return
	}
	bytes, err := request.ToJSONBytesLineWithVersion(version)
	if err != nil {
		glog.Error(client.id, "failed to convert request to JSON: ", err.Error())
		return
	}
	client.writeBytes(bytes)
}

func (client *StratumClient) writeResponse(response *JSONRPCResponse, version int) {
	if client.connection == nil || !client.connected.Load() {
		return
	}
	bytes, err := response.ToJSONBytesLineWithVersion(version)
	if err != nil {
		glog.Error(client.id, "failed to convert response to JSON: ", err.Error())
		return
	}
	client.writeBytes(bytes)
}

// writeBytes All writes run on the event loop, which is what keeps frames
// from interleaving.
func (client *StratumClient) writeBytes(bytes []byte) {
	if glog.V(10) {
		glog.Info(client.id, "send: ", string(bytes))
	}
	if _, err := client.connection.Write(bytes); err != nil {
		glog.Warning(client.id, "socket write failed: ", err.Error())
		client.doDisconnect()
	}
}

func (client *StratumClient) markPending(id uint64) {
	client.pending.Set(uint(id))
}

// doDisconnect Runs on the event loop; Disconnect posts here.
func (client *StratumClient) doDisconnect() {
	// Prevent unnecessary recursion
	if client.disconnecting.Load() || client.state == stateDisconnected {
		return
	}
	client.disconnecting.Store(true)
	client.state = stateDisconnecting

	client.stopTimer(&client.conntimer)
	client.stopTimer(&client.worktimer)
	client.stopTimer(&client.responsetimer)
	client.responsePending.Store(false)

	if client.dialCancel != nil {
		client.dialCancel()
		client.dialCancel = nil
	}

	if client.connection != nil && client.connection.IsTLS() {
		// Exchange close_notify with the peer; as there may be a connection
		// issue the connect timer doubles as an upper bound.
		conn := client.connection
		timeout := client.responseTimeout.Get()
		client.armConnTimer()
		go func() {
			conn.ShutdownTLS(timeout)
			client.SendEvent(EventSSLShutdownCompleted{conn})
		}()
		return
	}

	client.disconnectFinalize()
}

func (client *StratumClient) sslShutdownCompleted(e EventSSLShutdownCompleted) {
	if e.Conn != client.connection || client.state != stateDisconnecting {
		return
	}
	client.stopTimer(&client.conntimer)
	client.disconnectFinalize()
}

func (client *StratumClient) disconnectFinalize() {
	if client.connection != nil {
		client.connection.Close()
		client.connection = nil
	}

	client.subscribed.Store(false)
	client.authorized.Store(false)
	client.connected.Store(false)
	client.connecting.Store(false)
	client.disconnecting.Store(false)
	client.pending.ClearAll()
	client.state = stateDisconnected

	client.fireDisconnected()
}

func (client *StratumClient) armConnTimer() {
	client.stopTimer(&client.conntimer)
	client.conntimerGen++
	gen := client.conntimerGen
	client.conntimer = time.AfterFunc(client.responseTimeout.Get(), func() {
		client.SendEvent(EventConnectTimeout{gen})
	})
}

func (client *StratumClient) resetWorkTimeout() {
	client.stopTimer(&client.worktimer)
	client.worktimerGen++
	gen := client.worktimerGen
	client.worktimer = time.AfterFunc(client.workTimeout.Get(), func() {
		client.SendEvent(EventWorkTimeout{gen})
	})
}

func (client *StratumClient) stopTimer(timer **time.Timer) {
	if *timer != nil {
		(*timer).Stop()
		*timer = nil
	}
}

// checkConnectTimeout The connect timer guards both the in-flight dial and
// the TLS shutdown of a disconnect; the current state decides which.
func (client *StratumClient) checkConnectTimeout(gen uint64) {
	if gen != client.conntimerGen || !client.IsPendingState() {
		return
	}
	if client.connecting.Load() && client.state == stateConnecting {
		glog.Warning(client.id, "error ", client.activeAddr, " [Timeout]")
		if client.dialCancel != nil {
			client.dialCancel()
			client.dialCancel = nil
		}
		// Invalidate the dial so a late completion is discarded
		client.dialSeq++
		client.nextEndpoint()
		return
	}
	if client.disconnecting.Load() && client.state == stateDisconnecting {
		client.disconnectFinalize()
	}
}

func (client *StratumClient) workTimeoutExpired(gen uint64) {
	if gen != client.worktimerGen {
		return
	}
	if client.IsConnected() {
		glog.Warning(client.id, "no new work received in ", client.workTimeout, " seconds")
		client.doDisconnect()
	}
}

func (client *StratumClient) responseTimeoutExpired(gen uint64) {
	if gen != client.responsetimerGen {
		return
	}
	if client.IsConnected() && client.responsePending.Load() {
		glog.Warning(client.id, "no response received in ", client.responseTimeout, " seconds")
		client.doDisconnect()
	}
}
