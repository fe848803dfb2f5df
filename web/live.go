package web

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/fendouba123/DCNN/nnet"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

type statsMsg struct {
	Fold   int       `json:"fold"`
	Epoch  int       `json:"epoch"`
	Values []float64 `json:"values"`
}

// LivePage pushes per epoch training stats to connected browsers.
type LivePage struct {
	*Templates
	sync.Mutex
	conns []*websocket.Conn
}

func NewLivePage(t *Templates) *LivePage {
	return &LivePage{Templates: t}
}

// Handler function for the live training page
func (p *LivePage) Base() func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		p.Lock()
		defer p.Unlock()
		p.Select("/live")
		p.Heading = "live training"
		p.Exec(w, "live", p)
	}
}

// Handler function for the websocket connection
func (p *LivePage) Websocket() func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logError(w, err)
			return
		}
		p.Lock()
		p.conns = append(p.conns, conn)
		p.Unlock()
	}
}

// Progress returns a callback which broadcasts the stats for each epoch.
// Connections which fail to write are dropped.
func (p *LivePage) Progress() func(fold int, s nnet.Stats) {
	return func(fold int, s nnet.Stats) {
		msg := statsMsg{Fold: fold, Epoch: s.Epoch, Values: s.Values}
		p.Lock()
		defer p.Unlock()
		conns := p.conns[:0]
		for _, conn := range p.conns {
			if err := conn.WriteJSON(msg); err != nil {
				log.Debug().Err(err).Msg("drop websocket client")
				conn.Close()
			} else {
				conns = append(conns, conn)
			}
		}
		p.conns = conns
	}
}
