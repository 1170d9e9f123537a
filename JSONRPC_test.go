package main

import (
	"strings"
	"testing"
)

func TestJSONRPCLineClassification(t *testing.T) {
	line, err := NewJSONRPCLine([]byte(`{"id":1,"result":true,"error":null}`))
	if err != nil {
		t.Fatal(err)
	}
	if line.RPCVersion() != 1 {
		t.Fatalf("expected rpc version 1, got %d", line.RPCVersion())
	}
	if line.IDUint() != 1 {
		t.Fatalf("unexpected id: %d", line.IDUint())
	}
	if !line.IsSuccess() {
		t.Fatal("null error must be a success")
	}

	line, err = NewJSONRPCLine([]byte(`{"jsonrpc":"2.0","id":4,"result":false,"error":"low difficulty share"}`))
	if err != nil {
		t.Fatal(err)
	}
	if line.RPCVersion() != 2 {
		t.Fatalf("expected rpc version 2, got %d", line.RPCVersion())
	}
	if line.IsSuccess() {
		t.Fatal("string error must not be a success")
	}
}

func TestJSONRPCLineStringID(t *testing.T) {
	line, err := NewJSONRPCLine([]byte(`{"id":"7","method":"client.get_version","params":["x"]}`))
	if err != nil {
		t.Fatal(err)
	}
	if line.IDUint() != 7 {
		t.Fatalf("string id not parsed: %d", line.IDUint())
	}
}

func TestErrorReasonShapes(t *testing.T) {
	cases := []string{
		`{"id":4,"error":"low difficulty share"}`,
		`{"id":4,"error":[21,"Job not found"]}`,
		`{"id":4,"error":{"message":"stale"}}`,
	}
	for _, c := range cases {
		line, err := NewJSONRPCLine([]byte(c))
		if err != nil {
			t.Fatal(err)
		}
		reason := line.ErrorReason()
		if reason == "" {
			t.Fatalf("empty reason for %s", c)
		}
	}

	line, _ := NewJSONRPCLine([]byte(`{"id":4,"result":false}`))
	if line.ErrorReason() != "Unknown error" {
		t.Fatalf("missing error member must read as unknown, got %q", line.ErrorReason())
	}
}

func TestRequestToJSONBytesLine(t *testing.T) {
	request := &JSONRPCRequest{ID: RequestIDSubscribe, Method: "mining.subscribe"}
	request.SetParams(ClientUserAgent, StratumProtocolVersion)

	bytes, err := request.ToJSONBytesLine()
	if err != nil {
		t.Fatal(err)
	}
	s := string(bytes)
	if !strings.HasSuffix(s, "\n") {
		t.Fatal("line frame must end with a single newline")
	}
	if strings.Count(s, "\n") != 1 {
		t.Fatal("line frame must not embed newlines")
	}
	if strings.Contains(s, "jsonrpc") {
		t.Fatal("rpc 1.0 frame must not carry a jsonrpc member")
	}
	if strings.Contains(s, "worker") {
		t.Fatal("empty worker must be omitted")
	}
}

func TestRequestToRPC2JSONBytesLine(t *testing.T) {
	request := &JSONRPCRequest{ID: RequestIDSubmit, Method: "mining.submit", Worker: "rig1"}
	request.SetParams("user")

	bytes, err := request.ToJSONBytesLineWithVersion(2)
	if err != nil {
		t.Fatal(err)
	}
	line, err := NewJSONRPCLine(bytes[:len(bytes)-1])
	if err != nil {
		t.Fatal(err)
	}
	if line.JSONRPC != "2.0" {
		t.Fatalf("unexpected jsonrpc member: %q", line.JSONRPC)
	}
	if !strings.Contains(string(bytes), `"worker":"rig1"`) {
		t.Fatal("worker member missing")
	}
}

func TestResultArray(t *testing.T) {
	line, _ := NewJSONRPCLine([]byte(`{"id":5,"result":["hdr","seed","target"]}`))
	arr, ok := line.ResultArray()
	if !ok || len(arr) != 3 {
		t.Fatalf("result array not detected: %v", line.Result)
	}

	line, _ = NewJSONRPCLine([]byte(`{"id":5,"result":true}`))
	if _, ok := line.ResultArray(); ok {
		t.Fatal("bool result must not read as array")
	}
}
