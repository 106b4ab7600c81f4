// If you are AI: This file builds the AMF0 replies of the command layer.

package rtmp

import (
	"strings"

	"streamhub/internal/core/protocol/amf0"
	rtmpprotocol "streamhub/internal/core/protocol/rtmp"
)

// Status codes sent and recognised in onStatus/_result info objects.
const (
	CodeConnectSuccess     = "NetConnection.Connect.Success"
	CodeConnectRejected    = "NetConnection.Connect.Rejected"
	CodePublishStart       = "NetStream.Publish.Start"
	CodePublishBadName     = "NetStream.Publish.BadName"
	CodeUnpublishSuccess   = "NetStream.Unpublish.Success"
	CodePlayReset          = "NetStream.Play.Reset"
	CodePlayStart          = "NetStream.Play.Start"
	CodePlayStreamNotFound = "NetStream.Play.StreamNotFound"
	CodePlayUnpublish      = "NetStream.Play.UnpublishNotify"
)

// fixed stream id handed out by createStream
const mediaStreamID = 1

func statusObject(level, code, description string) amf0.Object {
	return amf0.Object{
		"level":       level,
		"code":        code,
		"description": description,
	}
}

func (c *Conn) sendStatus(streamID uint32, level, code, description string) error {
	return c.proto.WriteCommand(rtmpprotocol.CSIDVideo, streamID, amf0.Array{
		"onStatus", float64(0), nil, statusObject(level, code, description),
	})
}

func (c *Conn) sendResult(txn float64, values ...amf0.Value) error {
	cmd := append(amf0.Array{"_result", txn}, values...)
	return c.proto.WriteCommand(rtmpprotocol.CSIDCommand, 0, cmd)
}

func (c *Conn) sendError(txn float64, info amf0.Object) error {
	return c.proto.WriteCommand(rtmpprotocol.CSIDCommand, 0, amf0.Array{"_error", txn, nil, info})
}

// statusCode extracts info.code from an onStatus, _result or _error command.
func statusCode(cmd amf0.Array) (level, code string) {
	for i := len(cmd) - 1; i >= 2; i-- {
		if obj := amf0.AsObject(cmd[i]); obj != nil {
			if c := obj.String("code"); c != "" {
				return obj.String("level"), c
			}
		}
	}
	return "", ""
}

func isSuccessCode(code string) bool {
	return strings.HasSuffix(code, ".Success") || strings.HasSuffix(code, ".Start")
}

func number(v amf0.Value) float64 {
	f, _ := v.(float64)
	return f
}

// streamName returns the name argument of publish/play, without any query string.
// ["publish", txn, null, name, type]
func streamName(cmd amf0.Array) string {
	name := ""
	if len(cmd) >= 4 {
		name, _ = cmd[3].(string)
	}
	if name == "" && len(cmd) >= 3 {
		name, _ = cmd[2].(string)
	}
	if i := strings.IndexByte(name, '?'); i >= 0 {
		name = name[:i]
	}
	return name
}
