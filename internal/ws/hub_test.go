package ws

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"go.uber.org/zap"
)

// decodeFrames 从缓冲区解出全部下行帧
func decodeFrames(t *testing.T, buf *bytes.Buffer) []frame {
	t.Helper()
	var frames []frame
	dec := json.NewDecoder(strings.NewReader(buf.String()))
	for dec.More() {
		var f frame
		if err := dec.Decode(&f); err != nil {
			t.Fatalf("解析下行帧失败: %v", err)
		}
		frames = append(frames, f)
	}
	return frames
}

func TestHub_SendToUser_TargetsOnlyThatUser(t *testing.T) {
	hub := NewHub(zap.NewNop())

	aliceBuf := &bytes.Buffer{}
	bobBuf := &bytes.Buffer{}
	alice := newPeer(aliceBuf)
	bob := newPeer(bobBuf)
	hub.register("alice", alice)
	hub.register("bob", bob)

	hub.SendToUser("alice", "swap-request-received", map[string]string{"id": "swap-1"})

	aliceFrames := decodeFrames(t, aliceBuf)
	if len(aliceFrames) != 1 || aliceFrames[0].Event != "swap-request-received" {
		t.Errorf("alice 应收到 1 帧定向事件，实际: %+v", aliceFrames)
	}
	if bobBuf.Len() != 0 {
		t.Error("定向推送不应到达其他用户")
	}
}

func TestHub_SendToUser_MultipleConnections(t *testing.T) {
	hub := NewHub(zap.NewNop())

	// 同一用户多端登录
	buf1 := &bytes.Buffer{}
	buf2 := &bytes.Buffer{}
	hub.register("alice", newPeer(buf1))
	hub.register("alice", newPeer(buf2))

	hub.SendToUser("alice", "swap-completed", nil)

	if len(decodeFrames(t, buf1)) != 1 || len(decodeFrames(t, buf2)) != 1 {
		t.Error("同一用户的全部在线连接都应收到定向事件")
	}
}

func TestHub_SendToUser_NoConnections(t *testing.T) {
	hub := NewHub(zap.NewNop())
	// 无连接时推送不应 panic
	hub.SendToUser("nobody", "swap-completed", nil)
}

func TestHub_Broadcast_ReachesEveryone(t *testing.T) {
	hub := NewHub(zap.NewNop())

	aliceBuf := &bytes.Buffer{}
	bobBuf := &bytes.Buffer{}
	hub.register("alice", newPeer(aliceBuf))
	hub.register("bob", newPeer(bobBuf))

	hub.Broadcast("new-swappable-slot", map[string]string{"slot_id": "slot-1"})

	for name, buf := range map[string]*bytes.Buffer{"alice": aliceBuf, "bob": bobBuf} {
		frames := decodeFrames(t, buf)
		if len(frames) != 1 {
			t.Errorf("%s 应收到 1 帧广播，实际 %d", name, len(frames))
			continue
		}
		if frames[0].Event != "new-swappable-slot" {
			t.Errorf("%s 收到的事件名不正确: %s", name, frames[0].Event)
		}
	}
}

func TestHub_Unregister(t *testing.T) {
	hub := NewHub(zap.NewNop())

	buf := &bytes.Buffer{}
	p := newPeer(buf)
	hub.register("alice", p)
	if hub.ConnectionCount() != 1 {
		t.Fatalf("期望连接数 1，实际 %d", hub.ConnectionCount())
	}

	hub.unregister("alice", p)
	if hub.ConnectionCount() != 0 {
		t.Errorf("注销后连接数应为 0，实际 %d", hub.ConnectionCount())
	}

	hub.Broadcast("new-swappable-slot", nil)
	if buf.Len() != 0 {
		t.Error("已注销的连接不应再收到事件")
	}

	// 重复注销应幂等
	hub.unregister("alice", p)
}

func TestHub_FrameFormat(t *testing.T) {
	hub := NewHub(zap.NewNop())

	buf := &bytes.Buffer{}
	hub.register("alice", newPeer(buf))
	hub.SendToUser("alice", "swap-request-received", map[string]string{"id": "swap-1"})

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(buf.Bytes(), &raw); err != nil {
		t.Fatalf("下行帧应为 JSON 对象: %v", err)
	}
	if _, ok := raw["event"]; !ok {
		t.Error("下行帧应包含 event 字段")
	}
	if _, ok := raw["data"]; !ok {
		t.Error("下行帧应包含 data 字段")
	}
}
