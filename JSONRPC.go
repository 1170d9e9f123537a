package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// fastJSONMarshal Wire-path JSON encoding, backed by encoding/json
func fastJSONMarshal(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

// fastJSONUnmarshal Wire-path JSON decoding, backed by encoding/json
func fastJSONUnmarshal(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}

// JSONRPCRequest JSON RPC Request data structure
type JSONRPCRequest struct {
	ID     interface{}   `json:"id"`
	Method string        `json:"method"`
	Params []interface{} `json:"params"`
	Worker string        `json:"worker,omitempty"`
}

// JSONRPCResponse JSON RPC Response data structure
type JSONRPCResponse struct {
	ID     interface{} `json:"id"`
	Result interface{} `json:"result"`
	Error  interface{} `json:"error"`
}

// JSONRPCLine Inbound frame from the pool. A single shape covers both
// responses to our requests and server-initiated notifications.
type JSONRPCLine struct {
	ID      interface{}   `json:"id,omitempty"`
	JSONRPC string        `json:"jsonrpc,omitempty"`
	Method  string        `json:"method,omitempty"`
	Params  []interface{} `json:"params,omitempty"`
	Result  interface{}   `json:"result,omitempty"`
	Error   interface{}   `json:"error,omitempty"`
}

// JSONRPC2Request request message of json-rpc 2.0
type JSONRPC2Request struct {
	ID      interface{}   `json:"id"`
	JSONRPC string        `json:"jsonrpc"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
	Worker  string        `json:"worker,omitempty"`
}

// JSONRPC2Response response message of json-rpc 2.0
type JSONRPC2Response struct {
	ID      interface{} `json:"id"`
	JSONRPC string      `json:"jsonrpc"`
	Result  interface{} `json:"result,omitempty"`
	Error   interface{} `json:"error,omitempty"`
}

// JSONRPCArray JSON RPC Array
type JSONRPCArray []interface{}

// NewJSONRPCLine Parse one newline-delimited frame from the pool
func NewJSONRPCLine(rpcJSON []byte) (rpcData *JSONRPCLine, err error) {
	rpcData = new(JSONRPCLine)
	err = fastJSONUnmarshal(rpcJSON, &rpcData)
	return
}

// RPCVersion 2 if the message carries a jsonrpc member, else 1
func (rpcData *JSONRPCLine) RPCVersion() int {
	if rpcData.JSONRPC != "" {
		return 2
	}
	return 1
}

// IDUint Numeric request id; 0 when absent or not convertible
func (rpcData *JSONRPCLine) IDUint() uint64 {
	switch id := rpcData.ID.(type) {
	case float64:
		return uint64(id)
	case int64:
		return uint64(id)
	case uint64:
		return id
	case string:
		n, err := strconv.ParseUint(id, 10, 64)
		if err != nil {
			return 0
		}
		return n
	}
	return 0
}

// IsSuccess The error member is absent or null
func (rpcData *JSONRPCLine) IsSuccess() bool {
	return rpcData.Error == nil
}

// ErrorReason Render the error member into a human-readable reason.
// Pools variously send a string, an array or an object here.
func (rpcData *JSONRPCLine) ErrorReason() string {
	switch e := rpcData.Error.(type) {
	case nil:
		return "Unknown error"
	case string:
		return e
	case []interface{}:
		var sb strings.Builder
		for _, v := range e {
			sb.WriteString(fmt.Sprint(v))
			sb.WriteByte(' ')
		}
		return strings.TrimSpace(sb.String())
	case map[string]interface{}:
		var sb strings.Builder
		for k, v := range e {
			sb.WriteString(k)
			sb.WriteByte(':')
			sb.WriteString(fmt.Sprint(v))
			sb.WriteByte(' ')
		}
		return strings.TrimSpace(sb.String())
	}
	return fmt.Sprint(rpcData.Error)
}

// ResultArray The result member as an array, if it is one
func (rpcData *JSONRPCLine) ResultArray() ([]interface{}, bool) {
	arr, ok := rpcData.Result.([]interface{})
	return arr, ok
}

// SetParams Set the parameters of the JSONRPCRequest object
func (rpcData *JSONRPCRequest) SetParams(param ...interface{}) {
	rpcData.Params = param
}

// AddParams Append one or more parameters to the JSONRPCRequest object
func (rpcData *JSONRPCRequest) AddParams(param ...interface{}) {
	rpcData.Params = append(rpcData.Params, param...)
}

// ToJSONBytes Convert the JSONRPCRequest object to a JSON byte sequence
func (rpcData *JSONRPCRequest) ToJSONBytes() ([]byte, error) {
	if rpcData.Params == nil {
		rpcData.Params = []interface{}{}
	}
	return fastJSONMarshal(rpcData)
}

func (rpcData *JSONRPCRequest) ToJSONBytesLine() (bytes []byte, err error) {
	bytes, err = rpcData.ToJSONBytes()
	if err == nil {
		bytes = append(bytes, '\n')
	}
	return
}

func (rpcData *JSONRPCRequest) ToRPC2JSONBytes() ([]byte, error) {
	id := rpcData.ID
	if id == nil {
		id = 0
	}
	params := rpcData.Params
	if params == nil {
		params = []interface{}{}
	}
	rpc2Data := JSONRPC2Request{id, "2.0", rpcData.Method, params, rpcData.Worker}
	return fastJSONMarshal(rpc2Data)
}

func (rpcData *JSONRPCRequest) ToRPC2JSONBytesLine() (bytes []byte, err error) {
	bytes, err = rpcData.ToRPC2JSONBytes()
	if err == nil {
		bytes = append(bytes, '\n')
	}
	return
}

func (rpcData *JSONRPCRequest) ToJSONBytesLineWithVersion(version int) (bytes []byte, err error) {
	if version == 2 {
		return rpcData.ToRPC2JSONBytesLine()
	}
	return rpcData.ToJSONBytesLine()
}

// SetResult Set the return result of the JSONRPCResponse object
func (rpcData *JSONRPCResponse) SetResult(result interface{}) {
	rpcData.Result = result
}

// ToJSONBytes Convert the JSONRPCResponse object to a JSON byte sequence
func (rpcData *JSONRPCResponse) ToJSONBytes() ([]byte, error) {
	return fastJSONMarshal(rpcData)
}

func (rpcData *JSONRPCResponse) ToJSONBytesLine() (bytes []byte, err error) {
	bytes, err = rpcData.ToJSONBytes()
	if err == nil {
		bytes = append(bytes, '\n')
	}
	return
}

func (rpcData *JSONRPCResponse) ToRPC2JSONBytes() ([]byte, error) {
	id := rpcData.ID
	if id == nil {
		id = 0
	}
	rpc2Data := JSONRPC2Response{id, "2.0", rpcData.Result, rpcData.Error}
	return fastJSONMarshal(rpc2Data)
}

func (rpcData *JSONRPCResponse) ToRPC2JSONBytesLine() (bytes []byte, err error) {
	bytes, err = rpcData.ToRPC2JSONBytes()
	if err == nil {
		bytes = append(bytes, '\n')
	}
	return
}

func (rpcData *JSONRPCResponse) ToJSONBytesLineWithVersion(version int) (bytes []byte, err error) {
	if version == 2 {
		return rpcData.ToRPC2JSONBytesLine()
	}
	return rpcData.ToJSONBytesLine()
}
