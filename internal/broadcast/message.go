// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package broadcast

import "encoding/json"

// Wire message types sent to watch observers.
const (
	TypeDataChange       = "data_change"
	TypeScriptChange     = "script_change"
	TypeOutputFileChange = "output_file_change"
	TypeKeepalive        = "keepalive"
)

// Message is the JSON frame sent to watch observers.
type Message struct {
	Type       string `json:"type"`
	Path       string `json:"path,omitempty"`
	ChangeType string `json:"change_type,omitempty"`
}

// Encode marshals the message.
func (m Message) Encode() []byte {
	data, err := json.Marshal(m)
	if err != nil {
		// Only string fields; Marshal cannot fail.
		panic(err)
	}
	return data
}

// Keepalive is sent when an observer has been idle.
var Keepalive = Message{Type: TypeKeepalive}.Encode()
