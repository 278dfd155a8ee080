// Copyright (c) 2018 HyperHQ Inc.
//
// SPDX-License-Identifier: Apache-2.0
//

// Package api declares the request/response shapes and the ttrpc service
// descriptor for the shim's task service. Message shapes are fixed by the
// calling convention described alongside this package; there is no protoc
// step here, so each type satisfies ttrpc's Marshaler/Unmarshaler directly
// with a JSON encoding instead of a generated protobuf one.
package api

import "encoding/json"

// Timestamp is a UTC instant with nanosecond precision, with the same
// seconds/nanos fields as a protobuf well-known Timestamp (encoded as JSON
// here, like every other message in this package).
type Timestamp struct {
	Seconds int64 `json:"seconds"`
	Nanos   int32 `json:"nanos"`
}

type CreateTaskRequest struct {
	ID     string `json:"id"`
	Bundle string `json:"bundle"`
	Stdout string `json:"stdout"`
	Stderr string `json:"stderr"`
}

type CreateTaskResponse struct {
	Pid uint32 `json:"pid"`
}

type StartRequest struct {
	ID string `json:"id"`
}

type StartResponse struct {
	Pid uint32 `json:"pid"`
}

type KillRequest struct {
	ID     string `json:"id"`
	Signal uint32 `json:"signal"`
}

type KillResponse struct{}

type WaitRequest struct {
	ID string `json:"id"`
}

type WaitResponse struct {
	ExitStatus uint32    `json:"exit_status"`
	ExitedAt   Timestamp `json:"exited_at"`
}

type DeleteRequest struct {
	ID string `json:"id"`
}

type DeleteResponse struct {
	Pid uint32 `json:"pid"`
}

type ShutdownRequest struct{}

type ShutdownResponse struct{}

type StatsRequest struct {
	ID string `json:"id"`
}

type StatsResponse struct {
	MemoryUsageBytes uint64 `json:"memory_usage_bytes"`
	CPUUsageNanos    uint64 `json:"cpu_usage_nanos"`
	Ok               bool   `json:"ok"`
}

// the wire types below all share the same JSON-based Marshal/Unmarshal shape;
// a generated file would repeat this per message, so we factor it through
// one generic pair of functions instead of writing it out fourteen times.

func marshal(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

func unmarshal(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}

func (r *CreateTaskRequest) Marshal() ([]byte, error)    { return marshal(r) }
func (r *CreateTaskRequest) Unmarshal(d []byte) error    { return unmarshal(d, r) }
func (r *CreateTaskResponse) Marshal() ([]byte, error)   { return marshal(r) }
func (r *CreateTaskResponse) Unmarshal(d []byte) error   { return unmarshal(d, r) }
func (r *StartRequest) Marshal() ([]byte, error)         { return marshal(r) }
func (r *StartRequest) Unmarshal(d []byte) error         { return unmarshal(d, r) }
func (r *StartResponse) Marshal() ([]byte, error)        { return marshal(r) }
func (r *StartResponse) Unmarshal(d []byte) error        { return unmarshal(d, r) }
func (r *KillRequest) Marshal() ([]byte, error)          { return marshal(r) }
func (r *KillRequest) Unmarshal(d []byte) error          { return unmarshal(d, r) }
func (r *KillResponse) Marshal() ([]byte, error)         { return marshal(r) }
func (r *KillResponse) Unmarshal(d []byte) error         { return unmarshal(d, r) }
func (r *WaitRequest) Marshal() ([]byte, error)          { return marshal(r) }
func (r *WaitRequest) Unmarshal(d []byte) error          { return unmarshal(d, r) }
func (r *WaitResponse) Marshal() ([]byte, error)         { return marshal(r) }
func (r *WaitResponse) Unmarshal(d []byte) error         { return unmarshal(d, r) }
func (r *DeleteRequest) Marshal() ([]byte, error)        { return marshal(r) }
func (r *DeleteRequest) Unmarshal(d []byte) error        { return unmarshal(d, r) }
func (r *DeleteResponse) Marshal() ([]byte, error)       { return marshal(r) }
func (r *DeleteResponse) Unmarshal(d []byte) error       { return unmarshal(d, r) }
func (r *ShutdownRequest) Marshal() ([]byte, error)      { return marshal(r) }
func (r *ShutdownRequest) Unmarshal(d []byte) error      { return unmarshal(d, r) }
func (r *ShutdownResponse) Marshal() ([]byte, error)     { return marshal(r) }
func (r *ShutdownResponse) Unmarshal(d []byte) error     { return unmarshal(d, r) }
func (r *StatsRequest) Marshal() ([]byte, error)         { return marshal(r) }
func (r *StatsRequest) Unmarshal(d []byte) error         { return unmarshal(d, r) }
func (r *StatsResponse) Marshal() ([]byte, error)        { return marshal(r) }
func (r *StatsResponse) Unmarshal(d []byte) error        { return unmarshal(d, r) }
