// Package schemas holds the JSON Schemas for the push payload and the job
// created event.
package schemas

import _ "embed"

// PushMessage is the push payload contract.
//
//go:embed push_message.schema.json
var PushMessage []byte

// JobEvent is the jobs.created event contract.
//
//go:embed job_event.schema.json
var JobEvent []byte
