package main

import (
	"bytes"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/golang/glog"
	"golang.org/x/crypto/sha3"
)

// GetworkClient Polls the pool over HTTP JSON-RPC instead of holding a
// stream session. One POST per poll; failures simply retry at the next tick.
type GetworkClient struct {
	poolClientBase

	farmRecheckPeriod time.Duration
	coinbase          string
	hashrateID        string

	httpClient *http.Client

	connected   atomic.Bool
	exitChannel chan struct{}

	mu       sync.Mutex
	current  *Work
	prevWork common.Hash // fingerprint of the last template seen
}

// NewGetworkClient farmRecheckPeriod is in milliseconds.
func NewGetworkClient(farmRecheckPeriod uint, coinbase string) (client *GetworkClient) {
	client = new(GetworkClient)
	if farmRecheckPeriod == 0 {
		farmRecheckPeriod = DefaultFarmRecheckPeriodMs
	}
	client.farmRecheckPeriod = time.Duration(farmRecheckPeriod) * time.Millisecond
	client.coinbase = coinbase
	client.httpClient = &http.Client{Timeout: SocketIOTimeoutSeconds.Get()}
	client.exitChannel = make(chan struct{}, 1)

	// eth_submitHashrate wants a client id; derive a stable one
	id := sha3.Sum256([]byte("energiminer/" + coinbase))
	client.hashrateID = "0x" + common.Bytes2Hex(id[:])
	return
}

func (client *GetworkClient) url() string {
	scheme := "http"
	if client.endpoint.SecLevel != SecLevelNone {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s:%d", scheme, client.endpoint.Host, client.endpoint.Port)
}

func (client *GetworkClient) Connect() {
	if client.connected.Load() {
		return
	}
	client.connected.Store(true)
	client.fireConnected()
	go client.run()
}

func (client *GetworkClient) Disconnect() {
	if !client.connected.Load() {
		return
	}
	client.connected.Store(false)
	client.exitChannel <- struct{}{}
	client.fireDisconnected()
}

func (client *GetworkClient) IsConnected() bool {
	return client.connected.Load()
}

func (client *GetworkClient) IsPendingState() bool {
	return false
}

func (client *GetworkClient) run() {
	ticker := time.NewTicker(client.farmRecheckPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-client.exitChannel:
			return
		case <-ticker.C:
			if client.connected.Load() {
				client.poll()
			}
		}
	}
}

func (client *GetworkClient) poll() {
	params := []interface{}{}
	if client.coinbase != "" {
		params = append(params, client.coinbase)
	}
	result, err := client.call(RequestIDGetBlockTemplate, "getblocktemplate", params)
	if err != nil {
		glog.Warning("getblocktemplate failed: ", err.Error())
		return
	}

	template, ok := result.(map[string]interface{})
	if !ok {
		glog.Warning("getblocktemplate returned an unexpected result")
		return
	}
	work, err := newWorkFromTemplate(template)
	if err != nil {
		glog.Warning("bad block template: ", err.Error())
		return
	}

	fingerprint := templateFingerprint(template)

	client.mu.Lock()
	changed := fingerprint != client.prevWork
	if changed {
		client.prevWork = fingerprint
		client.current = work
	}
	client.mu.Unlock()

	if changed {
		client.fireWorkReceived(work)
	}
}

// newWorkFromTemplate Getwork templates carry the serialized header and the
// raw transaction data a submission needs.
func newWorkFromTemplate(template map[string]interface{}) (*Work, error) {
	headerHex, _ := template["data"].(string)
	if headerHex == "" {
		return nil, ErrInvalidWork
	}
	header, err := parseBlockHeader(headerHex)
	if err != nil {
		return nil, err
	}

	work := &Work{BlockHeader: header}
	work.JobName, _ = template["previousblockhash"].(string)
	work.RawTransactionData, _ = template["txndata"].(string)
	if target, ok := template["target"].(string); ok {
		work.Target = common.HexToHash(target)
	}
	return work, nil
}

// templateFingerprint Keccak over the fields that define the job; a changed
// fingerprint means new work.
func templateFingerprint(template map[string]interface{}) common.Hash {
	hasher := sha3.NewLegacyKeccak256()
	for _, key := range []string{"data", "previousblockhash", "target", "txndata"} {
		if value, ok := template[key].(string); ok {
			hasher.Write([]byte(value))
		}
	}
	var fingerprint common.Hash
	hasher.Sum(fingerprint[:0])
	return fingerprint
}

func (client *GetworkClient) SubmitSolution(solution *Solution) {
	data, err := solution.SubmitBlockData()
	if err != nil {
		glog.Warning("cannot serialize solution: ", err.Error())
		client.fireSolutionRejected(false)
		return
	}

	result, err := client.call(RequestIDSubmit, "submitblock", []interface{}{data})
	if err != nil {
		glog.Warning("submitblock failed: ", err.Error())
		client.fireSolutionRejected(false)
		return
	}
	// submitblock returns null on acceptance, a reject reason otherwise
	if result == nil {
		client.fireSolutionAccepted(true)
	} else {
		glog.Warning("reject reason: ", fmt.Sprint(result))
		client.fireSolutionRejected(false)
	}
}

func (client *GetworkClient) SubmitHashrate(rate string) {
	if !client.connected.Load() {
		return
	}
	_, err := client.call(RequestIDHashrate, "eth_submitHashrate", []interface{}{rate, client.hashrateID})
	if err != nil {
		glog.Warning("submit hashrate failed: ", err.Error())
	}
}

func (client *GetworkClient) call(id uint64, method string, params []interface{}) (interface{}, error) {
	request := &JSONRPCRequest{ID: id, Method: method, Params: params}
	body, err := request.ToJSONBytes()
	if err != nil {
		return nil, err
	}

	resp, err := client.httpClient.Post(client.url(), "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("http status %s", resp.Status)
	}

	var line JSONRPCLine
	buf := new(bytes.Buffer)
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return nil, err
	}
	if err := fastJSONUnmarshal(buf.Bytes(), &line); err != nil {
		return nil, err
	}
	if !line.IsSuccess() {
		return nil, fmt.Errorf("%s", line.ErrorReason())
	}
	return line.Result, nil
}
