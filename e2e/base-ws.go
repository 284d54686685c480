package e2e

import (
	"chat-relay/infrastructure/websocket"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/gookit/color"
	gws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/suite"
)

type BaseRelaySuite struct {
	suite.Suite
	Config Config
}

// SetupSuite loads the environment configuration before running tests
func (s *BaseRelaySuite) SetupSuite() {
	var err error
	s.Config, err = LoadConfig()
	s.Require().NoError(err)
	if s.Config.RelayURL == "" {
		s.T().Skip("RELAY_URL is not set, no relay to talk to")
	}
}

// Peer is one websocket connection to the relay, every frame is logged on the test output.
type Peer struct {
	s    *BaseRelaySuite
	t    *testing.T
	name string
	conn *gws.Conn
}

// Dial opens a connection to the relay with a colorized header in logs
func (s *BaseRelaySuite) Dial(t *testing.T, name string) *Peer {
	header := fmt.Sprintf("  ====== %s ======", name)
	if s.Config.Colours {
		header = color.New(color.BgBlack, color.FgGreen).Render(header)
	}
	t.Log(header)

	h := http.Header{}
	if s.Config.RelayOrigin != "" {
		h.Set("Origin", s.Config.RelayOrigin)
	}
	conn, _, err := gws.DefaultDialer.Dial(s.Config.RelayURL, h)
	s.Require().NoError(err, "Failed to connect to relay at "+s.Config.RelayURL)
	t.Cleanup(func() { _ = conn.Close() })
	return &Peer{s: s, t: t, name: name, conn: conn}
}

func (p *Peer) Send(name string, data any) {
	frame, err := websocket.Encode(name, data)
	p.s.Require().NoError(err)
	p.log("SEND", frame)
	p.s.Require().NoError(p.conn.WriteMessage(gws.TextMessage, frame))
}

// Receive reads the next frame, decodes its payload into data and returns the event name.
func (p *Peer) Receive(data any) string {
	p.s.Require().NoError(p.conn.SetReadDeadline(time.Now().Add(5 * time.Second)))
	_, frame, err := p.conn.ReadMessage()
	p.s.Require().NoError(err)
	p.log("RECV", frame)
	name, err := websocket.Decode(frame, data)
	p.s.Require().NoError(err)
	return name
}

func (p *Peer) log(direction string, frame []byte) {
	line := fmt.Sprintf("%s %s", p.name, direction)
	if p.s.Config.Colours {
		line = color.New(color.FgCyan).Render(line)
	}
	if p.s.Config.DebugJSON {
		line += "\n" + string(frame)
	}
	p.t.Log(line)
}
