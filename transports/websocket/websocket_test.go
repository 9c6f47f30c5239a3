package websocket

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"twinkit/tts"
	"twinkit/utils/audio"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type wireMessage struct {
	messageType int
	data        []byte
}

// connPair returns a client-side connection wired to a recording server.
func connPair(t *testing.T) (*websocket.Conn, <-chan wireMessage) {
	t.Helper()
	received := make(chan wireMessage, 64)
	upgrader := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			messageType, data, err := conn.ReadMessage()
			if err != nil {
				close(received)
				return
			}
			received <- wireMessage{messageType, data}
		}
	}))
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn, received
}

func forward(t *testing.T, f *StreamForwarder, events []tts.StreamEvent) {
	t.Helper()
	ch := make(chan tts.StreamEvent)
	go func() {
		for _, ev := range events {
			ch <- ev
		}
		close(ch)
	}()
	require.NoError(t, f.Forward(ch))
}

func nextMessage(t *testing.T, received <-chan wireMessage) wireMessage {
	t.Helper()
	select {
	case msg, ok := <-received:
		require.True(t, ok, "server connection closed early")
		return msg
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for forwarded message")
		return wireMessage{}
	}
}

func decodeJSON(t *testing.T, data []byte) map[string]interface{} {
	t.Helper()
	var msg map[string]interface{}
	require.NoError(t, sonic.Unmarshal(data, &msg))
	return msg
}

func TestForwardControlEventsAsJSON(t *testing.T) {
	conn, received := connPair(t)
	f := NewStreamForwarder(conn, ForwarderConfig{}, nil)

	forward(t, f, []tts.StreamEvent{
		{Type: tts.EventAudioStart, ID: "job-1", Encoding: "pcm_s16le", SampleRate: 22050, Channels: 1},
		{Type: tts.EventAudioEnd, ID: "job-1"},
	})

	start := nextMessage(t, received)
	assert.Equal(t, websocket.TextMessage, start.messageType)
	msg := decodeJSON(t, start.data)
	assert.Equal(t, "audio_start", msg["type"])
	assert.Equal(t, "pcm_s16le", msg["encoding"])
	assert.EqualValues(t, 22050, msg["sample_rate"])

	end := nextMessage(t, received)
	assert.Equal(t, "audio_end", decodeJSON(t, end.data)["type"])
}

func TestForwardSlicesAudioIntoFrames(t *testing.T) {
	conn, received := connPair(t)
	f := NewStreamForwarder(conn, ForwarderConfig{FrameSize: 4}, nil)

	payload := []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	forward(t, f, []tts.StreamEvent{
		{Type: tts.EventAudioData, ID: "job-1", ChunkIndex: 2, Data: payload},
	})

	header := nextMessage(t, received)
	require.Equal(t, websocket.TextMessage, header.messageType)
	msg := decodeJSON(t, header.data)
	assert.Equal(t, "audio_data", msg["type"])
	assert.EqualValues(t, 2, msg["chunk_index"])
	assert.EqualValues(t, 3, msg["frames"])
	assert.EqualValues(t, len(payload), msg["size"])

	var got []byte
	for i := 0; i < 3; i++ {
		frame := nextMessage(t, received)
		require.Equal(t, websocket.BinaryMessage, frame.messageType)
		require.LessOrEqual(t, len(frame.data), 4)
		got = append(got, frame.data...)
	}
	assert.Equal(t, payload, got)
}

func TestForwardULawReEncoding(t *testing.T) {
	conn, received := connPair(t)
	f := NewStreamForwarder(conn, ForwarderConfig{ULawOutput: true}, nil)

	pcm := make([]byte, 16)
	forward(t, f, []tts.StreamEvent{
		{Type: tts.EventAudioStart, ID: "job-1", Encoding: "pcm_s16le", SampleRate: 22050, Channels: 1},
		{Type: tts.EventAudioData, ID: "job-1", Data: pcm},
	})

	start := decodeJSON(t, nextMessage(t, received).data)
	assert.Equal(t, "ulaw", start["encoding"])

	header := decodeJSON(t, nextMessage(t, received).data)
	assert.EqualValues(t, len(pcm)/2, header["size"])

	frame := nextMessage(t, received)
	assert.Len(t, frame.data, len(pcm)/2)
}

func TestForwardDefaultFrameSize(t *testing.T) {
	f := NewStreamForwarder(nil, ForwarderConfig{}, nil)
	assert.Equal(t, audio.DefaultFrameSize, f.config.FrameSize)
}
