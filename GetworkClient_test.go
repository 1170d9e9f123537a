package main

import (
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"
)

// getworkPool An HTTP JSON-RPC endpoint standing in for the node.
type getworkPool struct {
	mu        sync.Mutex
	template  map[string]interface{}
	submitted []string
	hashrates []string
}

func headerHexPattern(fill byte) string {
	const digits = "0123456789abcdef"
	var sb strings.Builder
	for i := 0; i < BlockHeaderSize; i++ {
		sb.WriteByte(digits[fill>>4])
		sb.WriteByte(digits[fill&0xf])
	}
	return sb.String()
}

func (pool *getworkPool) setTemplate(data, prev string) {
	pool.mu.Lock()
	pool.template = map[string]interface{}{
		"data":              data,
		"previousblockhash": prev,
		"target":            "00000000ffff0000",
		"txndata":           "beef",
	}
	pool.mu.Unlock()
}

func (pool *getworkPool) handler(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	var request JSONRPCRequest
	if err := json.Unmarshal(body, &request); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	response := map[string]interface{}{"id": request.ID, "error": nil}
	pool.mu.Lock()
	switch request.Method {
	case "getblocktemplate":
		response["result"] = pool.template
	case "submitblock":
		data, _ := request.Params[0].(string)
		pool.submitted = append(pool.submitted, data)
		response["result"] = nil
	case "eth_submitHashrate":
		rate, _ := request.Params[0].(string)
		pool.hashrates = append(pool.hashrates, rate)
		response["result"] = true
	default:
		response["error"] = "Method not found"
	}
	pool.mu.Unlock()

	out, _ := json.Marshal(response)
	w.Header().Set("Content-Type", "application/json")
	w.Write(out)
}

func startGetworkClient(t *testing.T, pool *getworkPool) (*GetworkClient, *recorder2) {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(pool.handler))
	t.Cleanup(server.Close)

	host, portStr, err := net.SplitHostPort(strings.TrimPrefix(server.URL, "http://"))
	if err != nil {
		t.Fatal(err)
	}
	port, _ := strconv.ParseUint(portStr, 10, 16)

	client := NewGetworkClient(20, "coinbase-addr")
	client.SetEndpoint(&PoolEndpoint{Host: host, Port: uint16(port)})

	rec := &recorder2{
		work:     make(chan *Work, 8),
		accepted: make(chan bool, 8),
		rejected: make(chan bool, 8),
	}
	client.OnWorkReceived(func(work *Work) { rec.work <- work })
	client.OnSolutionAccepted(func(stale bool) { rec.accepted <- stale })
	client.OnSolutionRejected(func(stale bool) { rec.rejected <- stale })
	t.Cleanup(client.Disconnect)
	return client, rec
}

type recorder2 struct {
	work     chan *Work
	accepted chan bool
	rejected chan bool
}

func TestGetworkPollFiresOnChange(t *testing.T) {
	pool := new(getworkPool)
	pool.setTemplate(headerHexPattern(0x11), "p1")
	client, rec := startGetworkClient(t, pool)

	client.Connect()
	if !client.IsConnected() {
		t.Fatal("getwork client must report connected after Connect")
	}
	if client.IsPendingState() {
		t.Fatal("getwork client has no pending states")
	}

	var work *Work
	select {
	case work = <-rec.work:
	case <-time.After(testWait):
		t.Fatal("first poll must produce work")
	}
	if work.JobName != "p1" {
		t.Fatalf("unexpected job name: %q", work.JobName)
	}
	if len(work.BlockHeader) != BlockHeaderWords {
		t.Fatalf("template header not parsed: %d words", len(work.BlockHeader))
	}

	// Unchanged template: no second notification
	select {
	case <-rec.work:
		t.Fatal("unchanged template must not refire")
	case <-time.After(200 * time.Millisecond):
	}

	pool.setTemplate(headerHexPattern(0x22), "p2")
	select {
	case work = <-rec.work:
	case <-time.After(testWait):
		t.Fatal("changed template must produce work")
	}
	if work.JobName != "p2" {
		t.Fatalf("unexpected job name: %q", work.JobName)
	}
}

func TestGetworkSubmitSolution(t *testing.T) {
	pool := new(getworkPool)
	pool.setTemplate(headerHexPattern(0x11), "p1")
	client, rec := startGetworkClient(t, pool)
	client.Connect()

	var work *Work
	select {
	case work = <-rec.work:
	case <-time.After(testWait):
		t.Fatal("no work from poll")
	}

	solution := &Solution{JobName: work.JobName, Work: work}
	client.SubmitSolution(solution)

	select {
	case <-rec.accepted:
	case <-time.After(testWait):
		t.Fatal("submit not accepted")
	}

	expected, err := solution.SubmitBlockData()
	if err != nil {
		t.Fatal(err)
	}
	pool.mu.Lock()
	defer pool.mu.Unlock()
	if len(pool.submitted) != 1 || pool.submitted[0] != expected {
		t.Fatalf("unexpected submitblock payload: %v", pool.submitted)
	}
	if !strings.HasSuffix(pool.submitted[0], "beef") {
		t.Fatal("raw transaction data missing from payload")
	}
}

func TestGetworkSubmitHashrate(t *testing.T) {
	pool := new(getworkPool)
	pool.setTemplate(headerHexPattern(0x11), "p1")
	client, _ := startGetworkClient(t, pool)
	client.Connect()

	client.SubmitHashrate("0x1dcd6500")

	deadline := time.Now().Add(testWait)
	for {
		pool.mu.Lock()
		n := len(pool.hashrates)
		pool.mu.Unlock()
		if n > 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("hashrate never submitted")
		}
		time.Sleep(5 * time.Millisecond)
	}

	pool.mu.Lock()
	defer pool.mu.Unlock()
	if pool.hashrates[0] != "0x1dcd6500" {
		t.Fatalf("unexpected hashrate: %q", pool.hashrates[0])
	}
}
